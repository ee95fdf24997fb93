package multifile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	pload "github.com/replicate/pload/pkg"
	"github.com/replicate/pload/pkg/cli"
	"github.com/replicate/pload/pkg/consumer"
	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/optname"
)

const longDesc = `
'multifile' mode for pload takes a manifest file as input (can use '-' for stdin) and loads every source listed in
the manifest.

The manifest is expected to be in the format of a newline-separated list of pairs of sources and destination paths,
separated by a space. A source is an http(s) URL or a local path.
e.g.
https://example.com/data.ini /tmp/data.ini

Each entry is loaded by its own loader with the global connector and proxy settings. Entries are loaded in parallel,
limited by '--max-concurrent-files'.
`

const multifileExamples = `
  pload multifile manifest.txt

  pload multifile - < manifest.txt

  cat multifile.txt | pload multifile -
`

type loadFunc func(ctx context.Context, entry manifestEntry) (int64, time.Duration, error)

type multifileLoadMetric struct {
	elapsedTime time.Duration
	fileSize    int64
}

type loadMetrics struct {
	metrics []multifileLoadMetric
	mut     sync.Mutex
}

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "multifile [flags] <manifest-file>",
		Short:   "load files from a manifest file in parallel",
		Long:    longDesc,
		Args:    cobra.ExactArgs(1),
		PreRunE: multifilePreRunE,
		RunE:    runMultifileCMD,
		Example: multifileExamples,
	}

	cmd.Flags().Int(optname.MaxConcurrentFiles, 4, "Maximum number of files to load concurrently")
	err := viper.BindPFlag(optname.MaxConcurrentFiles, cmd.Flags().Lookup(optname.MaxConcurrentFiles))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cmd.SetUsageTemplate(cli.UsageTemplate)
	return cmd
}

func multifilePreRunE(cmd *cobra.Command, args []string) error {
	if viper.GetString(optname.LocalFile) != "" {
		return fmt.Errorf("cannot use --%s with multifile mode, list local sources in the manifest", optname.LocalFile)
	}
	return nil
}

func runMultifileCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	manifestPath := args[0]
	file, err := manifestFile(manifestPath)
	if err != nil {
		return err
	}
	defer file.Close()
	entries, err := parseManifest(file)
	if err != nil {
		return fmt.Errorf("error processing manifest file %s: %w", manifestPath, err)
	}

	return multifileExecute(cmd.Context(), entries, loadEntry)
}

func initializeErrGroup(ctx context.Context) (*errgroup.Group, context.Context) {
	logger := logging.GetLogger()
	eg, ctx := errgroup.WithContext(ctx)

	// If `--max-concurrent-files` is set, limit the number of concurrent files
	if concurrentFileLimit := viper.GetInt(optname.MaxConcurrentFiles); concurrentFileLimit > 0 {
		logger.Debug().Int("concurrent_file_limit", concurrentFileLimit).Msg("Config")
		eg.SetLimit(concurrentFileLimit)
	}
	return eg, ctx
}

func multifileExecute(ctx context.Context, entries manifest, load loadFunc) error {
	logger := logging.GetLogger()
	metrics := &loadMetrics{metrics: make([]multifileLoadMetric, 0)}

	eg, ctx := initializeErrGroup(ctx)
	multifileLoadStart := time.Now()

	for _, entry := range entries {
		logger.Debug().Str("source", entry.source).Str("dest", entry.dest).Msg("Queueing Load")
		eg.Go(func() error {
			fileSize, elapsed, err := load(ctx, entry)
			if err != nil {
				return fmt.Errorf("error loading %s: %w", entry.source, err)
			}
			addLoadMetrics(elapsed, fileSize, metrics)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("error loading files: %w", err)
	}

	aggregateAndPrintMetrics(time.Since(multifileLoadStart), metrics)
	return nil
}

// loadEntry gives every entry its own Loader; loaders are never shared between goroutines.
func loadEntry(ctx context.Context, entry manifestEntry) (int64, time.Duration, error) {
	l, err := cli.NewLoader()
	if err != nil {
		return 0, 0, err
	}
	if entry.remote() {
		l.ClearLocalFile()
		err = l.SetRemoteDataURL(entry.source)
	} else {
		err = l.SetLocalFile(entry.source)
	}
	if err != nil {
		return 0, 0, err
	}

	out, err := consumer.ByName(viper.GetString(optname.OutputConsumer))
	if err != nil {
		return 0, 0, err
	}
	if viper.GetBool(optname.Force) {
		out.EnableOverwrite()
	}
	getter := pload.Getter{
		Source:     l,
		Consumer:   out,
		Decompress: viper.GetBool(optname.Decompress),
	}
	return getter.LoadFile(ctx, entry.dest)
}

func aggregateAndPrintMetrics(elapsedTime time.Duration, metrics *loadMetrics) {
	logger := logging.GetLogger()
	var totalFileSize int64

	metrics.mut.Lock()
	defer metrics.mut.Unlock()

	for _, metric := range metrics.metrics {
		totalFileSize += metric.fileSize
	}
	throughput := float64(totalFileSize) / elapsedTime.Seconds()
	logger.Info().
		Int("file_count", len(metrics.metrics)).
		Str("total_bytes_loaded", humanize.Bytes(uint64(totalFileSize))).
		Str("throughput", fmt.Sprintf("%s/s", humanize.Bytes(uint64(throughput)))).
		Str("elapsed_time", fmt.Sprintf("%.3fs", elapsedTime.Seconds())).
		Msg("Metrics")
}

func addLoadMetrics(elapsedTime time.Duration, fileSize int64, metrics *loadMetrics) {
	result := multifileLoadMetric{
		elapsedTime: elapsedTime,
		fileSize:    fileSize,
	}
	metrics.mut.Lock()
	defer metrics.mut.Unlock()
	metrics.metrics = append(metrics.metrics, result)
}
