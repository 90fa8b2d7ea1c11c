// Package main is the entry point for the dynatable CLI binary.
package main

import (
	"os"

	"dynatable/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
