package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRecordingCmd создаёт группу команд для работы с записями.
func NewRecordingCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Manage recordings",
	}

	cmd.AddCommand(
		newRecordingListCmd(clientFn, outputFn),
		newRecordingTrimCmd(clientFn, outputFn),
		newRecordingTrimCompleteCmd(clientFn, outputFn),
		newRecordingTrimAbortCmd(clientFn, outputFn),
		newRecordingTrimCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newRecordingListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list MEETING_ID",
		Short: "List recordings of a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			recordings, err := client.ListRecordings(args[0])
			if err != nil {
				return err
			}

			headers := []string{"RECORDING_ID", "UUID", "TYPE", "STATUS", "SIZE", "TRIM"}
			rows := make([][]string, len(recordings))
			for i, r := range recordings {
				rows[i] = []string{
					r.RecordingID,
					r.MeetingUUID,
					r.RecordingType,
					r.DownloadStatus,
					strconv.FormatInt(r.FileSize, 10),
					strconv.FormatBool(r.Trim),
				}
			}

			out.Print(headers, rows, recordings)
			return nil
		},
	}
}

func newRecordingTrimCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var meetingUUID string

	cmd := &cobra.Command{
		Use:   "trim RECORDING_ID",
		Short: "Start trimming a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := clientFn().BeginTrim(TrimRequest{
				MeetingUUID: meetingUUID,
				RecordingID: args[0],
			})
			if err != nil {
				return err
			}
			out := outputFn()
			out.Success(fmt.Sprintf("Trim started for %s", rec.RecordingID))
			out.JSON(rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&meetingUUID, "uuid", "", "Meeting instance UUID (required)")
	cmd.MarkFlagRequired("uuid")

	return cmd
}

func newRecordingTrimCompleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var meetingUUID string
	var trimmedPath string

	cmd := &cobra.Command{
		Use:   "trim-complete RECORDING_ID",
		Short: "Record a finished trimmed artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := clientFn().CompleteTrim(CompleteTrimRequest{
				MeetingUUID: meetingUUID,
				RecordingID: args[0],
				TrimmedPath: trimmedPath,
			})
			if err != nil {
				return err
			}
			out := outputFn()
			out.Success(fmt.Sprintf("Trim completed for %s", rec.RecordingID))
			out.JSON(rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&meetingUUID, "uuid", "", "Meeting instance UUID (required)")
	cmd.Flags().StringVar(&trimmedPath, "path", "", "Path of the trimmed file (required)")
	cmd.MarkFlagRequired("uuid")
	cmd.MarkFlagRequired("path")

	return cmd
}

func newRecordingTrimAbortCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var meetingUUID string

	cmd := &cobra.Command{
		Use:   "trim-abort RECORDING_ID",
		Short: "Release the trim guard after a failed trim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := clientFn().AbortTrim(TrimRequest{
				MeetingUUID: meetingUUID,
				RecordingID: args[0],
			})
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Trim aborted for %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&meetingUUID, "uuid", "", "Meeting instance UUID (required)")
	cmd.MarkFlagRequired("uuid")

	return cmd
}

func newRecordingTrimCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var meetingUUID string

	cmd := &cobra.Command{
		Use:   "trim-cancel RECORDING_ID",
		Short: "Cancel trim and drop the derived artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := clientFn().CancelTrim(TrimRequest{
				MeetingUUID: meetingUUID,
				RecordingID: args[0],
			})
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Trim cancelled for %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&meetingUUID, "uuid", "", "Meeting instance UUID (required)")
	cmd.MarkFlagRequired("uuid")

	return cmd
}
