package mtime

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/replicate/pload/pkg/cli"
)

const longDesc = `
'mtime' prints the modification time of the data file in unix seconds.

For a local file this is the file's modification time. For a remote target the body of --version-url is read and
must be a date (RFC 1123, RFC 3339 and most other common layouts) or an integer number of unix seconds.
`

func GetCommand() *cobra.Command {
	var rfc3339 bool
	cmd := &cobra.Command{
		Use:   "mtime [flags]",
		Short: "print the modification time of the data file",
		Long:  longDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			l, err := cli.NewLoader()
			if err != nil {
				return err
			}
			mtime, err := l.ModificationTime(cmd.Context())
			if err != nil {
				return err
			}
			if rfc3339 {
				fmt.Fprintln(cmd.OutOrStdout(), time.Unix(mtime, 0).UTC().Format(time.RFC3339))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), mtime)
			return nil
		},
		Example: `  pload mtime --version-url https://example.com/version.txt
  pload mtime --local-file /srv/data.ini --rfc3339`,
	}
	cmd.Flags().BoolVar(&rfc3339, "rfc3339", false, "Print the time as RFC 3339 instead of unix seconds")
	cmd.SetUsageTemplate(cli.UsageTemplate)
	return cmd
}
