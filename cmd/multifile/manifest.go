package multifile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/replicate/pload/pkg/cli"
	"github.com/replicate/pload/pkg/consumer"
	"github.com/replicate/pload/pkg/optname"
)

// A manifest is a file consisting of pairs of sources and paths:
//
// http://example.com/foo/bar.ini     foo/bar.ini
// /srv/data/baz.ini                  foo/baz.ini
//
// A source is an http(s) URL or a local path. A manifest may contain blank lines and
// lines starting with '#'. The pairs are separated by arbitrary whitespace.

type manifestEntry struct {
	source string
	dest   string
}

func (e manifestEntry) remote() bool {
	u, err := url.Parse(e.source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

type manifest []manifestEntry

func manifestFile(manifestPath string) (*os.File, error) {
	if manifestPath == "-" {
		return os.Stdin, nil
	}
	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("manifest file %s does not exist", manifestPath)
	}
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("error opening manifest file %s: %w", manifestPath, err)
	}
	return file, err
}

func parseLine(line string) (source, dest string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("error parsing manifest invalid line format `%s`", line)
	}
	return fields[0], fields[1], nil
}

func checkSeenDests(destinations map[string]string, dest string, source string) error {
	if seenSource, ok := destinations[dest]; ok {
		if seenSource != source {
			return fmt.Errorf("duplicate destination %s with different sources: %s and %s", dest, seenSource, source)
		}
		return fmt.Errorf("duplicate entry: %s %s", source, dest)
	}
	return nil
}

func parseManifest(file io.Reader) (manifest, error) {
	seenDests := make(map[string]string)
	entries := make(manifest, 0)
	checkDests := viper.GetString(optname.OutputConsumer) != consumer.NameNull

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		source, dest, err := parseLine(line)
		if err != nil {
			return nil, err
		}

		if checkDests {
			if err := checkSeenDests(seenDests, dest, source); err != nil {
				return nil, err
			}
			seenDests[dest] = source

			if err := cli.EnsureDestinationNotExist(dest); err != nil {
				return nil, err
			}
		}
		entries = append(entries, manifestEntry{source: source, dest: dest})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return entries, nil
}
