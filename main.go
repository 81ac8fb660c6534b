// package main provides the entry point for the riskboard backend,
// covering the daily risk pipeline and the dashboard API server.
package main

import (
	"fmt"
	"os"

	"github.com/vulnmgt/riskboard-backend/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
