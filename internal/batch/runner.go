package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"rose/internal/metrics"
	"rose/internal/mission"
	"rose/internal/orchestrator"
	"rose/internal/stage"
)

const defaultConcurrency = 4

// Outcome pairs a mission spec with how its run ended.
type Outcome struct {
	Spec    MissionSpec
	Result  mission.Result
	Metrics *metrics.MissionMetrics
	Err     error
}

// RunAll runs every spec as an independent state machine, up to concurrency
// at a time. Missions share nothing, so failures are collected per outcome
// rather than aborting the group; only caller cancellation stops the batch.
func RunAll(ctx context.Context, svc stage.Service, specs []MissionSpec, concurrency int, defaultMaxIterations int, opts ...orchestrator.Option) []Outcome {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	outcomes := make([]Outcome, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, spec := range specs {
		if spec.MaxIterations < 1 {
			spec.MaxIterations = defaultMaxIterations
		}
		i, spec := i, spec
		g.Go(func() error {
			outcomes[i].Spec = spec

			st, err := mission.NewState(spec.Prompt, spec.Goal, spec.MaxIterations)
			if err != nil {
				outcomes[i].Err = err
				outcomes[i].Result = mission.Result{Phase: mission.DoneFailed}
				return nil
			}

			machine := orchestrator.New(svc, st, opts...)
			res, runErr := machine.Run(gctx)
			outcomes[i].Result = res
			outcomes[i].Metrics = machine.Metrics()
			outcomes[i].Err = runErr
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
