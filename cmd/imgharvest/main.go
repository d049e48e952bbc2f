// Package main is the entry point for the imgharvest CLI.
package main

import (
	"os"

	"github.com/imgharvest/imgharvest/cmd/imgharvest/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
