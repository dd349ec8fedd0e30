// Package main is the fairsplit CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/finsight/fairsplit/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
