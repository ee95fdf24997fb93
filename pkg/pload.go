package pload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/replicate/pload/pkg/consumer"
	"github.com/replicate/pload/pkg/extract"
	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/response"
)

// Source is satisfied by *loader.Loader.
type Source interface {
	Load(ctx context.Context) (*response.Response, error)
}

type Getter struct {
	Source   Source
	Consumer consumer.Consumer
	// Decompress unwraps gzip, bzip2, xz and lz4 payloads before they reach the consumer.
	Decompress bool
}

// LoadFile loads the data file and hands it to the consumer. It returns the number of bytes
// loaded, before any decompression.
func (g *Getter) LoadFile(ctx context.Context, dest string) (int64, time.Duration, error) {
	if g.Consumer == nil {
		g.Consumer = &consumer.FileWriter{}
	}
	logger := logging.GetLogger()
	loadStartTime := time.Now()
	resp, err := g.Source.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	data, err := resp.Contents()
	if err != nil {
		return 0, 0, fmt.Errorf("error reading response: %w", err)
	}
	fileSize := int64(len(data))
	loadElapsed := time.Since(loadStartTime)
	writeStartTime := time.Now()

	if err := resp.Body.Rewind(); err != nil {
		return fileSize, 0, err
	}
	var reader io.Reader = resp.Body
	format := "none"
	expected := fileSize
	if g.Decompress {
		reader, format, err = extract.Decompress(resp.Body)
		if err != nil {
			return fileSize, 0, err
		}
		if format != "none" {
			expected = -1
		}
	}

	if err := g.Consumer.Consume(reader, dest, expected); err != nil {
		return fileSize, 0, fmt.Errorf("error writing file: %w", err)
	}
	writeElapsed := time.Since(writeStartTime)
	totalElapsed := time.Since(loadStartTime)

	logger.Info().
		Str("dest", dest).
		Str("size", humanize.Bytes(uint64(fileSize))).
		Str("compression", format).
		Str("load_elapsed", fmt.Sprintf("%.3fs", loadElapsed.Seconds())).
		Str("write_elapsed", fmt.Sprintf("%.3fs", writeElapsed.Seconds())).
		Str("total_elapsed", fmt.Sprintf("%.3fs", totalElapsed.Seconds())).
		Msg("Complete")
	return fileSize, totalElapsed, nil
}
