package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewNotificationCmd создаёт группу команд для очереди уведомлений.
func NewNotificationCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notification",
		Short: "Manage the notification queue",
	}

	cmd.AddCommand(
		newNotificationListCmd(clientFn, outputFn),
		newNotificationCreateCmd(clientFn, outputFn),
		newNotificationSweepCmd(clientFn, outputFn),
	)

	return cmd
}

func newNotificationListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			notifications, err := clientFn().ListNotifications()
			if err != nil {
				return err
			}

			headers := []string{"GAME_ID", "STATUS", "LAST_UPDATED", "CREATED"}
			rows := make([][]string, len(notifications))
			for i, n := range notifications {
				rows[i] = []string{
					strconv.FormatInt(n.GameID, 10),
					n.Status,
					n.LastUpdated,
					n.CreatedAt,
				}
			}

			outputFn().Print(headers, rows, notifications)
			return nil
		},
	}
}

func newNotificationCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "create GAME_ID",
		Short: "Enqueue a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid game id %q", args[0])
			}

			n, err := clientFn().CreateNotification(gameID)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Notification enqueued for game %d", n.GameID))
			out.JSON(n)
			return nil
		},
	}
}

func newNotificationSweepCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Trigger an immediate delivery sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().SweepNotifications(); err != nil {
				return err
			}
			outputFn().Success("Delivery sweep triggered")
			return nil
		},
	}
}
