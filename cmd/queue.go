/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/AgentWing/models"
)

// queueCmd inspects the persisted task queue.
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect queued, running and finished tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		tasks, err := a.repo.ListTasks(nil)
		if err != nil {
			return err
		}
		sort.Slice(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		})

		counts := make(map[models.TaskStatus]int)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tBACKEND\tPRIORITY\tINSTRUCTION")
		for _, t := range tasks {
			counts[t.Status]++
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				shortID(t.ID), t.Status, t.Options.Backend, t.Priority, clip(t.Instruction, 60))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d pending, %d running, %d completed, %d failed, %d cancelled\n",
			counts[models.StatusPending], counts[models.StatusRunning],
			counts[models.StatusCompleted], counts[models.StatusFailed], counts[models.StatusCancelled])
		return nil
	},
}

// queueCancelCmd cancels a task by id.
var queueCancelCmd = &cobra.Command{
	Use:   "cancel [task-id]",
	Short: "Cancel a pending or running task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.queue.Cancel(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cancel requested for", args[0])
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueCancelCmd)
}
