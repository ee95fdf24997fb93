package cmd

import (
	"github.com/spf13/cobra"

	"github.com/replicate/pload/cmd/mtime"
	"github.com/replicate/pload/cmd/multifile"
	"github.com/replicate/pload/cmd/root"
	"github.com/replicate/pload/cmd/update"
	"github.com/replicate/pload/cmd/version"
)

func GetRootCommand() *cobra.Command {
	rootCMD := root.GetCommand()
	rootCMD.AddCommand(mtime.GetCommand())
	rootCMD.AddCommand(multifile.GetCommand())
	rootCMD.AddCommand(update.GetCommand())
	rootCMD.AddCommand(version.VersionCMD)
	return rootCMD
}
