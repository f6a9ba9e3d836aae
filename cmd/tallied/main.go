package main

import (
	"os"

	"github.com/tallied-dev/tallied/internal/commands"
	"github.com/tallied-dev/tallied/internal/logging"
)

func main() {
	logging.Setup()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
