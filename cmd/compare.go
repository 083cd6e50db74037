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
)

var (
	compareRepo string
	compareWait bool
)

// compareCmd runs one instruction on every available backend from the same
// repository snapshot.
var compareCmd = &cobra.Command{
	Use:   "compare [instruction]",
	Short: "Run one instruction on every available backend and compare outcomes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instruction := strings.Join(args, " ")

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ct, err := a.compares.Create(cmd.Context(), instruction, compareRepo)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "comparison %s (base %s)\n", ct.ID, shortCommit(ct.BaseCommit))
		for backend, taskID := range ct.RecordedTaskIDs() {
			fmt.Fprintf(out, "  %-7s task %s\n", backend, taskID)
		}
		for _, backend := range models.AllBackends {
			if _, ok := ct.RecordedTaskIDs()[backend]; !ok {
				fmt.Fprintf(out, "  %-7s unavailable (no credentials)\n", backend)
			}
		}

		a.queue.Start()
		if !compareWait {
			return nil
		}
		if err := a.queue.WaitForIdle(cmd.Context()); err != nil {
			_ = a.compares.Cancel(ct.ID)
			return err
		}

		final, err := a.compares.Get(ct.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "status: %s\n", final.Status)
		for backend, taskID := range final.RecordedTaskIDs() {
			child, ok := a.queue.Get(taskID)
			if !ok {
				continue
			}
			fmt.Fprintf(out, "  %-7s %s%s\n", backend, child.Status, childDetail(child))
		}
		return nil
	},
}

func childDetail(t *models.Task) string {
	switch {
	case t.Error != nil:
		return " (" + t.Error.Message + ")"
	case t.CompletedAt != nil && t.StartedAt != nil:
		return " (" + t.CompletedAt.Sub(*t.StartedAt).Round(time.Second).String() + ")"
	}
	return ""
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVarP(&compareRepo, "repo", "r", ".", "repository id or path to compare against")
	compareCmd.Flags().BoolVarP(&compareWait, "wait", "w", true, "wait for all backends to finish")
}
