package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// newInvokeCmd creates the "invoke" command: compile and run a source
// file (or stdin) against the server ad-hoc, without deploying it.
func newInvokeCmd(state *cliState) *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "invoke [source-file]",
		Short: "Compile and invoke an ES module ad-hoc, without deploying it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args)
			if err != nil {
				return err
			}

			var rawPayload json.RawMessage
			if payload != "" {
				rawPayload = json.RawMessage(payload)
			}

			result, err := state.Client.InvokeSource(source, rawPayload)
			if err != nil {
				cmd.SilenceUsage = true
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload passed to the function's default export")

	return cmd
}

// readSource reads ES module source from the named file, or from
// stdin when no file argument is given.
func readSource(args []string) (string, error) {
	if len(args) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading source from stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading source file %s: %w", args[0], err)
	}
	return string(b), nil
}
