// Package main is the entry point for the gscq CLI binary.
package main

import (
	"os"

	cli "gsc-insights/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
