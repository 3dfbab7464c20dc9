// Command symbolctl is the operator CLI for the symbol extraction
// service: run extraction jobs, inspect symbols, and manage page records.
package main

import (
	"fmt"
	"os"

	"manuscript-symbols/cmd/symbolctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
