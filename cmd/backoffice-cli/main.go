// Backoffice CLI — инструмент командной строки для управления
// задачами скачивания, записями и уведомлениями через HTTP API.
//
// Использование:
//
//	backoffice [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	task          Управление задачами скачивания
//	recording     Управление записями и trim-операциями
//	notification  Управление очередью уведомлений
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectorium/backoffice/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "backoffice",
		Short:         "Backoffice CLI — учебная платформа, управление очередями",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(clientFn, outputFn),
		cli.NewRecordingCmd(clientFn, outputFn),
		cli.NewNotificationCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
