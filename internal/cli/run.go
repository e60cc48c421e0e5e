package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rose/internal/display"
	"rose/internal/llm_client"
	"rose/internal/logger"
	"rose/internal/mission"
	"rose/internal/orchestrator"
	"rose/internal/supervisor"
)

var (
	runPrompt        string
	runGoal          string
	runMaxIterations int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single refinement mission in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxIter := runMaxIterations
		if maxIter == 0 {
			maxIter = cfg.MaxIterations
		}

		st, err := mission.NewState(runPrompt, runGoal, maxIter)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		machine := orchestrator.New(llm_client.Reasoner{}, st,
			orchestrator.WithStageTimeout(cfg.StageTimeout()),
			orchestrator.WithRetryPolicy(retryPolicy()),
			orchestrator.WithProgress(func(ev orchestrator.ProgressEvent) {
				fmt.Printf("%s done (iteration %d, %d ms)\n", ev.Stage, ev.Iteration, ev.DurationMs)
			}),
		)

		res, runErr := machine.Run(ctx)
		logger.Log.Printf("Foreground mission ended %s after %d iteration(s)", res.Phase, res.Iterations)

		result := supervisor.MissionResult{
			InitialPrompt: runPrompt,
			Goal:          runGoal,
			FinalPrompt:   res.FinalPrompt,
			Evaluation:    res.Evaluation,
			Iterations:    res.Iterations,
			TerminalState: string(res.Phase),
		}
		if runErr != nil {
			result.Error = runErr.Error()
		}
		if len(st.Criteria) > 0 {
			fmt.Println(display.FormatCriteria(st.Criteria))
		}
		fmt.Println(display.FormatMissionResult(&result))
		fmt.Println(display.FormatMissionMetrics(machine.Metrics()))

		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "the prompt text to improve")
	runCmd.Flags().StringVarP(&runGoal, "goal", "g", "", "what the improved prompt must achieve")
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0, "iteration budget (default from config)")
	_ = runCmd.MarkFlagRequired("prompt")
	_ = runCmd.MarkFlagRequired("goal")
}
