package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pload "github.com/replicate/pload/pkg"
	"github.com/replicate/pload/pkg/cache"
	"github.com/replicate/pload/pkg/cli"
	"github.com/replicate/pload/pkg/consumer"
	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/optname"
)

const longDesc = `
'update' refreshes <dest> only when the data file changed.

The modification time of the data file is compared with the one recorded after the last successful update of the
same target and destination. The data file is loaded and written when the time differs, when nothing was recorded
yet, when <dest> is missing or when --force is set. Records live in a sqlite database under --cache-dir, and a lock
file there keeps concurrent updates from interleaving.
`

const (
	cacheFile = "pload.db"
	lockFile  = "update.lock"
)

// target identifies one update in the cache.
type target struct {
	LocalFile  string
	DataURL    string
	VersionURL string
	Dest       string
}

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [flags] <dest>",
		Short: "load the data file only when its modification time changed",
		Long:  longDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return updateExecute(cmd.Context(), args[0])
		},
		Example: `  pload update --data-url https://example.com/data.ini --version-url https://example.com/version.txt data.ini`,
	}
	cmd.SetUsageTemplate(cli.UsageTemplate)
	return cmd
}

func updateExecute(ctx context.Context, dest string) error {
	logger := logging.GetLogger()
	cacheDir := viper.GetString(optname.CacheDir)

	lock, err := cli.AcquireLock(ctx, filepath.Join(cacheDir, lockFile))
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn().Err(err).Msg("Release Lock")
		}
	}()

	store, err := cache.OpenSQLite(filepath.Join(cacheDir, cacheFile))
	if err != nil {
		return err
	}
	defer store.Close()

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("error resolving destination %s: %w", dest, err)
	}
	key, err := cache.Key(target{
		LocalFile:  viper.GetString(optname.LocalFile),
		DataURL:    viper.GetString(optname.DataURL),
		VersionURL: viper.GetString(optname.VersionURL),
		Dest:       absDest,
	})
	if err != nil {
		return err
	}

	updated, err := update(ctx, store, key, dest, viper.GetBool(optname.Force))
	if err != nil {
		return err
	}
	if !updated {
		logger.Info().Str("dest", dest).Msg("Up To Date")
	}
	return nil
}

// update loads the data file into dest unless the recorded modification time under key still
// matches. It reports whether dest was written.
func update(ctx context.Context, store cache.Cache, key, dest string, force bool) (bool, error) {
	logger := logging.GetLogger()

	l, err := cli.NewLoader()
	if err != nil {
		return false, err
	}
	mtime, err := l.ModificationTime(ctx)
	if err != nil {
		return false, err
	}
	current := []byte(strconv.FormatInt(mtime, 10))

	cached, found, err := store.Get(key)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(dest)
	destExists := !errors.Is(statErr, fs.ErrNotExist)
	if !force && found && destExists && string(cached) == string(current) {
		return false, nil
	}
	logger.Debug().
		Bool("cached", found).
		Str("cached_mtime", string(cached)).
		Int64("mtime", mtime).
		Bool("dest_exists", destExists).
		Msg("Update Needed")

	writer := &consumer.FileWriter{Overwrite: true}
	getter := pload.Getter{
		Source:     l,
		Consumer:   writer,
		Decompress: viper.GetBool(optname.Decompress),
	}
	if _, _, err := getter.LoadFile(ctx, dest); err != nil {
		return false, err
	}
	if err := store.Set(key, current); err != nil {
		return true, err
	}
	return true, nil
}
