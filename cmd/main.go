package main

import (
	"fmt"
	"os"

	"faasrun/cmd/commands"
)

func main() {
	cli := commands.NewRootCmd()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitCodeForError(err))
	}
}
