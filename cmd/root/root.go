package root

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	pload "github.com/replicate/pload/pkg"
	"github.com/replicate/pload/pkg/cli"
	"github.com/replicate/pload/pkg/config"
	"github.com/replicate/pload/pkg/consumer"
	"github.com/replicate/pload/pkg/optname"
)

const rootLongDesc = `
pload

pload fetches a data file and its version marker from a local path or a remote HTTP(S) endpoint and writes the
data file to a destination.

The transport is chosen per call. A local file always wins when one is configured. Otherwise pload uses the first
available connector out of a raw HTTP/1.0 socket client, a buffered net/http stream and a full-featured HTTP client
with NTLM proxy support. Use --mode to pin one connector and --disable-connectors to take connectors out of the
fallback order.

HTTP error statuses are reported as errors. Nothing is retried.
`

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pload [flags] <dest>",
		Short: "pload",
		Long:  rootLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.PersistentStartupProcessFlags()
		},
		RunE: runRootCMD,
		Args: cobra.ExactArgs(1),
		Example: `  pload --data-url https://example.com/data.ini --version-url https://example.com/version.txt data.ini
  pload --local-file /srv/data.ini.gz -x data.ini`,
	}
	cmd.SetUsageTemplate(cli.UsageTemplate)
	err := config.AddRootPersistentFlags(cmd)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cmd
}

func runRootCMD(cmd *cobra.Command, args []string) error {
	// After we run through the PreRun functions we want to silence usage from being printed
	// on all errors
	cmd.SilenceUsage = true

	dest := args[0]

	log.Info().
		Str("data_url", viper.GetString(optname.DataURL)).
		Str("local_file", viper.GetString(optname.LocalFile)).
		Str("dest", dest).
		Msg("Initiating")

	if err := cli.EnsureDestinationNotExist(dest); err != nil {
		return err
	}

	return rootExecute(cmd.Context(), dest)
}

// rootExecute is the main function of the program and encapsulates the general logic
// returns any/all errors to the caller.
func rootExecute(ctx context.Context, dest string) error {
	dataLoader, err := cli.NewLoader()
	if err != nil {
		return err
	}
	out, err := consumer.ByName(viper.GetString(optname.OutputConsumer))
	if err != nil {
		return err
	}
	if viper.GetBool(optname.Force) {
		out.EnableOverwrite()
	}
	getter := pload.Getter{
		Source:     dataLoader,
		Consumer:   out,
		Decompress: viper.GetBool(optname.Decompress),
	}

	// The version marker is optional here; it is only fetched when it can be resolved.
	fetchMTime := viper.GetString(optname.VersionURL) != "" || viper.GetString(optname.LocalFile) != ""

	var mtime int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, _, err := getter.LoadFile(gctx, dest)
		return err
	})
	if fetchMTime {
		g.Go(func() error {
			// A separate Loader; a Loader is not shared between concurrent calls.
			mtimeLoader, err := cli.NewLoader()
			if err != nil {
				return err
			}
			mtime, err = mtimeLoader.ModificationTime(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if fetchMTime {
		log.Info().Str("dest", dest).Int64("modification_time", mtime).Msg("Version")
	}
	return nil
}
