/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

var (
	runBackend  string
	runModel    string
	runPriority int
	runTimeout  time.Duration
	runNoRetry  bool
)

// runCmd submits a single task and waits for it to resolve.
var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Run one task on an agent backend and wait for the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instruction := strings.Join(args, " ")

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		opts := models.TaskOptions{
			Backend: models.Backend(runBackend),
			Model:   runModel,
			Timeout: runTimeout,
		}
		if runNoRetry {
			opts.Retry = &types.RetryConfig{Policy: "none"}
		}
		task := models.NewTask(instruction, opts)
		task.Priority = runPriority

		id, err := a.queue.Add(task)
		if err != nil {
			return err
		}
		a.watchTask(id, func(line string) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		})

		a.queue.Start()
		if err := a.queue.WaitForIdle(cmd.Context()); err != nil {
			_ = a.queue.Cancel(id)
			return err
		}

		final, ok := a.queue.Get(id)
		if !ok {
			return fmt.Errorf("task %s disappeared", id)
		}
		switch final.Status {
		case models.StatusCompleted:
			fmt.Fprintln(cmd.OutOrStdout(), final.Result)
			return nil
		case models.StatusCancelled:
			return fmt.Errorf("task cancelled")
		default:
			if final.Error != nil {
				return final.Error
			}
			return fmt.Errorf("task %s ended in status %s", id, final.Status)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runBackend, "backend", "b", "", "backend to run on (claude, codex, gemini; default from config)")
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "model override for the chosen backend")
	runCmd.Flags().IntVarP(&runPriority, "priority", "p", 0, "scheduling priority (higher runs first)")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 0, "per-task timeout (0 means none)")
	runCmd.Flags().BoolVar(&runNoRetry, "no-retry", false, "fail immediately instead of applying the retry policy")
}
