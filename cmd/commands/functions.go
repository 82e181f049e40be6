package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newFunctionsCmd creates the "functions" command group: create,
// deploy, and invoke registered functions.
func newFunctionsCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "Manage functions and their deployments",
	}

	cmd.AddCommand(newFunctionsCreateCmd(state))
	cmd.AddCommand(newFunctionsDeployCmd(state))
	cmd.AddCommand(newFunctionsInvokeCmd(state))

	return cmd
}

// newFunctionsCreateCmd creates the "functions create" command.
func newFunctionsCreateCmd(state *cliState) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new function",
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := state.Client.CreateFunction(name)
			if err != nil {
				cmd.SilenceUsage = true
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "function %s (%s) created\n", fn.ID, fn.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Function name (generated if absent)")

	return cmd
}

// newFunctionsDeployCmd creates the "functions deploy" command.
func newFunctionsDeployCmd(state *cliState) *cobra.Command {
	var functionID string

	cmd := &cobra.Command{
		Use:   "deploy [source-file]",
		Short: "Deploy ES module source to a function, making it live",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if functionID == "" {
				return fmt.Errorf("--function-id is required")
			}

			source, err := readSource(args)
			if err != nil {
				return err
			}

			dep, err := state.Client.Deploy(functionID, source)
			if err != nil {
				cmd.SilenceUsage = true
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deployment %s is now live for function %s\n", dep.ID, dep.FunctionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&functionID, "function-id", "", "Function id to deploy to (required)")

	return cmd
}

// newFunctionsInvokeCmd creates the "functions invoke" command.
func newFunctionsInvokeCmd(state *cliState) *cobra.Command {
	var functionID string
	var payload string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Invoke a function's live deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if functionID == "" {
				return fmt.Errorf("--function-id is required")
			}

			var rawPayload json.RawMessage
			if payload != "" {
				rawPayload = json.RawMessage(payload)
			}

			result, err := state.Client.InvokeFunction(functionID, rawPayload)
			if err != nil {
				cmd.SilenceUsage = true
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&functionID, "function-id", "", "Function id to invoke (required)")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload passed to the function's default export")

	return cmd
}
