package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rose/internal/batch"
	"rose/internal/display"
	"rose/internal/llm_client"
	"rose/internal/logger"
	"rose/internal/orchestrator"
	"rose/internal/supervisor"
)

var (
	batchOnly        []string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <missions-file>",
	Short: "Run every mission in a YAML missions file concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := batch.LoadMissionsFile(args[0])
		if err != nil {
			return err
		}

		specs, missing := batch.SelectByNames(specs, batchOnly)
		if len(missing) > 0 {
			fmt.Printf("Missing missions: %v\n", missing)
		}
		if len(specs) == 0 {
			return fmt.Errorf("no missions selected from %s", args[0])
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Log.Printf("Running %d mission(s) from %s", len(specs), args[0])
		outcomes := batch.RunAll(ctx, llm_client.Reasoner{}, specs, batchConcurrency, cfg.MaxIterations,
			orchestrator.WithStageTimeout(cfg.StageTimeout()),
			orchestrator.WithRetryPolicy(retryPolicy()),
		)

		for _, o := range outcomes {
			result := supervisor.MissionResult{
				Name:          o.Spec.Name,
				InitialPrompt: o.Spec.Prompt,
				Goal:          o.Spec.Goal,
				FinalPrompt:   o.Result.FinalPrompt,
				Evaluation:    o.Result.Evaluation,
				Iterations:    o.Result.Iterations,
				TerminalState: string(o.Result.Phase),
			}
			if o.Err != nil {
				result.Error = o.Err.Error()
			}
			fmt.Printf("--- %s ---\n", o.Spec.Name)
			fmt.Println(display.FormatMissionResult(&result))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringSliceVar(&batchOnly, "only", nil, "run only the named missions (ordered)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max missions in flight at once")
}
