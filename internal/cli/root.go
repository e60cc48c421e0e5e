package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rose/internal/config"
	"rose/internal/display"
	"rose/internal/listener"
	"rose/internal/llm_client"
	"rose/internal/logger"
	"rose/internal/orchestrator"
	"rose/internal/supervisor"
)

var cfg config.Config
var cfgPath string

func retryPolicy() orchestrator.RetryPolicy {
	return orchestrator.RetryPolicy{
		SchemaRetries:  cfg.SchemaRetries,
		ServiceRetries: cfg.ServiceRetries,
		Backoff:        time.Second,
	}
}

func printResults() {
	for result := range supervisor.ResultChannel {
		listener.AsyncPrintln(display.FormatMissionResult(&result))
		if result.Metrics != nil {
			listener.AsyncPrintln(display.FormatMissionMetrics(result.Metrics))
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "rose",
	Short: "Iterative prompt refinement driven by a reasoning service",
	Long: `rose takes a prompt and a goal and improves the prompt iteratively:
it decomposes the goal into criteria, plans a revision, rewrites the prompt,
and scores the result, looping until the improvement is sufficient or the
iteration budget runs out.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.LogFile); err != nil {
			return fmt.Errorf("could not initialize logger: %w", err)
		}
		return llm_client.Init(llm_client.Config{
			Backend:    cfg.Backend,
			Model:      cfg.Model,
			OllamaHost: cfg.OllamaHost,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := listener.Init(); err != nil {
			fmt.Println("Failed to init terminal input:", err)
			os.Exit(1)
		}
		defer listener.Close()

		supervisor.StartSupervisor(llm_client.Reasoner{}, supervisor.RunOptions{
			StageTimeout: cfg.StageTimeout(),
			Retry:        retryPolicy(),
			Progress: func(missionID string, ev orchestrator.ProgressEvent) {
				listener.AsyncPrintln(fmt.Sprintf("[Mission %s] %s done (iteration %d, %d ms)",
					missionID, ev.Stage, ev.Iteration, ev.DurationMs))
			},
		})
		go printResults()

		// Graceful shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			fmt.Println("\nGoodbye!")
			os.Exit(0)
		}()

		listener.AsyncPrintln("Enter the prompt you want to improve. Commands: 'cancel [id]', 'exit'.")

		for {
			inputText := listener.GetInput()
			lowered := strings.ToLower(strings.TrimSpace(inputText))
			if lowered == "exit" {
				fmt.Println("Goodbye!")
				break
			}
			if inputText == "" {
				continue
			}

			if lowered == "cancel" || strings.HasPrefix(lowered, "cancel ") {
				id := strings.TrimSpace(strings.TrimPrefix(lowered, "cancel"))
				if id == "" {
					cancelled, err := supervisor.CancelMostRecent()
					if err != nil {
						listener.AsyncPrintln(fmt.Sprintf("[Cancel] %v", err))
					} else {
						listener.AsyncPrintln(fmt.Sprintf("[Cancel] Mission %s cancellation requested", cancelled))
					}
				} else if _, err := supervisor.CancelMission(id); err != nil {
					listener.AsyncPrintln(fmt.Sprintf("[Cancel] %v", err))
				} else {
					listener.AsyncPrintln(fmt.Sprintf("[Cancel] Mission %s cancellation requested", id))
				}
				continue
			}

			goal := listener.Ask("Goal for this prompt > ")
			if goal == "" {
				listener.AsyncPrintln("A goal is required; mission not submitted.")
				continue
			}

			maxIter := cfg.MaxIterations
			if ans := listener.Ask(fmt.Sprintf("Max iterations [%d] > ", maxIter)); ans != "" {
				n, err := strconv.Atoi(ans)
				if err != nil || n < 1 {
					listener.AsyncPrintln("Max iterations must be a positive integer; mission not submitted.")
					continue
				}
				maxIter = n
			}

			missionID, err := supervisor.SubmitMission("", inputText, goal, maxIter)
			if err != nil {
				listener.AsyncPrintln(fmt.Sprintf("[Submit FAILED] %v", err))
				continue
			}
			logger.Log.Printf("Submitted mission %s: goal %q, max_iterations=%d", missionID, goal, maxIter)
			listener.AsyncPrintln(fmt.Sprintf("[Mission %s submitted] Refining in the background...", missionID))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "path to the YAML config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
