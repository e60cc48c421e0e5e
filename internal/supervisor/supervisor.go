package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rose/internal/logger"
	"rose/internal/mission"
	"rose/internal/orchestrator"
	"rose/internal/stage"
)

var missionQueue = make(chan *Mission, 100) // Main work queue

var curMu sync.Mutex
var curMission *Mission
var curCancel context.CancelFunc

// RunOptions apply to every mission the supervisor runs.
type RunOptions struct {
	StageTimeout time.Duration
	Retry        orchestrator.RetryPolicy
	Progress     func(missionID string, ev orchestrator.ProgressEvent)
}

var runSvc stage.Service
var runOpts RunOptions

func StartSupervisor(svc stage.Service, opts RunOptions) {
	runSvc = svc
	runOpts = opts
	go func() {
		for m := range missionQueue {
			logger.Log.Printf("[Supervisor] Starting mission '%s' (ID: %s)", m.Goal, m.ID)
			m.State = StatusRunning
			runMission(m)
		}
	}()
}

// SubmitMission validates inputs up front and queues a refinement mission.
// Invalid inputs are rejected here, before the mission ever enters REFINING.
func SubmitMission(name, initialPrompt, goal string, maxIterations int) (string, error) {
	if _, err := mission.NewState(initialPrompt, goal, maxIterations); err != nil {
		return "", err
	}
	id := uuid.New().String()[:8]
	missionQueue <- &Mission{
		ID:            id,
		Name:          name,
		InitialPrompt: initialPrompt,
		Goal:          goal,
		MaxIterations: maxIterations,
		State:         StatusPending,
	}
	return id, nil
}

// Cancel a specific mission by ID (works if it's the current running one).
func CancelMission(id string) (bool, error) {
	curMu.Lock()
	defer curMu.Unlock()

	if curMission == nil || curMission.State != StatusRunning {
		return false, fmt.Errorf("no mission is currently running")
	}
	if id != "" && !strings.EqualFold(curMission.ID, id) {
		return false, fmt.Errorf("mission %s is not running (current running: %s)", id, curMission.ID)
	}
	if curCancel == nil {
		return false, fmt.Errorf("internal error: cancel function not set")
	}
	curCancel()
	return true, nil
}

// Cancel the most recent / current mission.
func CancelMostRecent() (string, error) {
	curMu.Lock()
	defer curMu.Unlock()

	if curMission == nil || curMission.State != StatusRunning {
		return "", fmt.Errorf("no mission is currently running")
	}
	if curCancel == nil {
		return "", fmt.Errorf("internal error: cancel function not set")
	}
	id := curMission.ID
	curCancel()
	return id, nil
}

func runMission(m *Mission) {
	st, err := mission.NewState(m.InitialPrompt, m.Goal, m.MaxIterations)
	if err != nil {
		m.State = StatusFailed
		ResultChannel <- MissionResult{
			MissionID:     m.ID,
			Name:          m.Name,
			InitialPrompt: m.InitialPrompt,
			Goal:          m.Goal,
			TerminalState: string(mission.DoneFailed),
			Error:         err.Error(),
		}
		return
	}

	opts := []orchestrator.Option{orchestrator.WithMissionID(m.ID)}
	if runOpts.StageTimeout > 0 {
		opts = append(opts, orchestrator.WithStageTimeout(runOpts.StageTimeout))
	}
	if runOpts.Retry != (orchestrator.RetryPolicy{}) {
		opts = append(opts, orchestrator.WithRetryPolicy(runOpts.Retry))
	}
	if runOpts.Progress != nil {
		id := m.ID
		opts = append(opts, orchestrator.WithProgress(func(ev orchestrator.ProgressEvent) {
			runOpts.Progress(id, ev)
		}))
	}
	machine := orchestrator.New(runSvc, st, opts...)

	missionCtx, cancel := context.WithCancel(context.Background())
	curMu.Lock()
	curMission = m
	curCancel = cancel
	curMu.Unlock()
	defer func() {
		cancel()
		curMu.Lock()
		if curMission != nil && curMission.ID == m.ID {
			curMission = nil
			curCancel = nil
		}
		curMu.Unlock()
	}()

	res, runErr := machine.Run(missionCtx)

	switch {
	case runErr == nil && res.Phase == mission.DoneSuccess:
		logger.Log.Printf("Mission '%s' SUCCEEDED (ID: %s) after %d iteration(s).", m.Goal, m.ID, res.Iterations)
		m.State = StatusSucceeded
	case runErr == nil && res.Phase == mission.DoneExhausted:
		logger.Log.Printf("Mission '%s' EXHAUSTED (ID: %s) at %d iteration(s).", m.Goal, m.ID, res.Iterations)
		m.State = StatusExhausted
	case errors.Is(runErr, context.Canceled):
		logger.Log.Printf("Mission '%s' CANCELLED (ID: %s).", m.Goal, m.ID)
		m.State = StatusCancelled
	default:
		logger.Log.Printf("Mission '%s' FAILED (ID: %s): %v", m.Goal, m.ID, runErr)
		m.State = StatusFailed
	}

	result := MissionResult{
		MissionID:     m.ID,
		Name:          m.Name,
		InitialPrompt: m.InitialPrompt,
		Goal:          m.Goal,
		FinalPrompt:   res.FinalPrompt,
		Evaluation:    res.Evaluation,
		Iterations:    res.Iterations,
		TerminalState: string(res.Phase),
		Metrics:       machine.Metrics(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	ResultChannel <- result
}
