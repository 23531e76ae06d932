package main

import (
	"fmt"
	"os"

	"github.com/hopkinsidd/flepimop-inference/cmd/inference-slot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
