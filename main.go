package main

import (
	"os"

	"github.com/replicate/pload/cmd"
	"github.com/replicate/pload/pkg/logging"
)

func main() {
	logging.SetupLogger()
	rootCMD := cmd.GetRootCommand()

	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}
