package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для управления задачами скачивания.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage download tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
		newTaskCreateCmd(clientFn, outputFn),
		newTaskShowCmd(clientFn, outputFn),
		newTaskDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List download tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks(status, limit)
			if err != nil {
				return err
			}

			headers := []string{"MEETING_ID", "EMAIL", "STATUS", "EXECUTE_TIME", "LAST_UPDATED"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{t.MeetingID, t.Email, t.Status, t.ExecuteTime, t.LastUpdated}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, in_progress, done, deleted_in_zoom)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newTaskCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var email string
	var executeTime string

	cmd := &cobra.Command{
		Use:   "create MEETING_ID",
		Short: "Enqueue a download task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateTaskRequest{
				Email:     email,
				MeetingID: args[0],
			}
			if executeTime != "" {
				// Валидируем формат до отправки.
				if _, err := time.Parse(time.RFC3339, executeTime); err != nil {
					return fmt.Errorf("invalid --execute-time (want RFC3339): %w", err)
				}
				req.ExecuteTime = executeTime
			}

			task, err := client.CreateTask(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task enqueued for meeting %s", task.MeetingID))
			out.JSON(task)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Host account email (required)")
	cmd.Flags().StringVar(&executeTime, "execute-time", "", "Earliest claim time, RFC3339 (default: now)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newTaskShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show MEETING_ID",
		Short: "Show a download task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := clientFn().GetTask(args[0])
			if err != nil {
				return err
			}
			outputFn().JSON(task)
			return nil
		},
	}
}

func newTaskDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete MEETING_ID",
		Short: "Remove a download task from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteTask(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Task for meeting %s deleted", args[0]))
			return nil
		},
	}
}
