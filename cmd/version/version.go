package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replicate/pload/pkg/version"
)

const VersionCMDName = "version"

var VersionCMD = &cobra.Command{
	Use:   VersionCMDName,
	Short: "print version and build information",
	Long:  "Print the version information and the version token used in the user agent",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pload Version %s - Build Time %s - User Agent Token %s\n",
			version.GetVersion(), version.BuildTime, version.UserAgentToken())
	},
}
