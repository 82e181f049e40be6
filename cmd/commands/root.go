// Package commands implements the faasrun CLI command tree: a thin
// HTTP client over the platform's API, not a second implementation of
// the engine or store.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"faasrun/client"
)

// cliState holds the shared runtime state for the application.
type cliState struct {
	Client *client.Client
}

// NewRootCmd creates the entire command tree and returns the root command.
func NewRootCmd() *cobra.Command {
	state := &cliState{}
	var baseURL string

	rootCmd := &cobra.Command{
		Use:   "faasrun",
		Short: "faasrun CLI",
		Long:  `CLI for invoking functions and managing deployments against a faasrun server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			resolved := baseURL
			if env := os.Getenv("BASE_URL"); env != "" {
				resolved = env
			}
			if resolved == "" {
				resolved = client.DefaultBaseURL
			}
			state.Client = client.New(resolved)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Server base URL (overridden by BASE_URL env var)")

	rootCmd.AddCommand(newInvokeCmd(state))
	rootCmd.AddCommand(newFunctionsCmd(state))
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// ExitCodeForError maps a client error onto the CLI's exit code
// convention: 1 for a 422 from the server, 2 for any other non-2xx
// response or transport failure.
func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	if statusErr, ok := err.(*client.StatusError); ok && statusErr.StatusCode == 422 {
		return 1
	}
	return 2
}
