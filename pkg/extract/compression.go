// Package extract transparently decompresses a loaded payload. The format is detected from the
// leading bytes; uncompressed input is passed through unchanged.
package extract

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/h2non/filetype"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"

	"github.com/replicate/pload/pkg/logging"
)

// filetype matchers look at up to 262 bytes.
const peekSize = 262

var ErrUnsupportedFormat = errors.New("unsupported compression format")

var (
	gzipMagic = []byte{0x1F, 0x8B}
	bzipMagic = []byte{0x42, 0x5A, 0x68}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

var _ decompressor = gzipDecompressor{}
var _ decompressor = bzip2Decompressor{}
var _ decompressor = xzDecompressor{}
var _ decompressor = lz4Decompressor{}

// decompressor represents different compression formats.
type decompressor interface {
	decompress(r io.Reader) (io.Reader, error)
	name() string
}

// Decompress wraps r in the decompressor matching its leading bytes and returns the detected
// format name ("none" for plain input). Archive formats that are not plain compression streams,
// such as zip or 7z, are rejected with ErrUnsupportedFormat.
func Decompress(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, peekSize)
	head, err := br.Peek(peekSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("error peeking at payload: %w", err)
	}

	d, err := detectFormat(head)
	if err != nil {
		return nil, "", err
	}
	if d == nil {
		return br, "none", nil
	}
	out, err := d.decompress(br)
	if err != nil {
		return nil, "", fmt.Errorf("error reading %s stream: %w", d.name(), err)
	}
	return out, d.name(), nil
}

// detectFormat returns the appropriate decompressor according to the magic number, or nil for
// input that is not compressed.
func detectFormat(input []byte) (decompressor, error) {
	log := logging.GetLogger()

	var d decompressor
	switch {
	case bytes.HasPrefix(input, gzipMagic):
		d = gzipDecompressor{}
	case bytes.HasPrefix(input, bzipMagic):
		d = bzip2Decompressor{}
	case bytes.HasPrefix(input, lz4Magic):
		d = lz4Decompressor{}
	case bytes.HasPrefix(input, xzMagic):
		d = xzDecompressor{}
	case filetype.IsArchive(input):
		kind, _ := filetype.Match(input)
		log.Debug().
			Str("type", kind.Extension).
			Str("mime", kind.MIME.Value).
			Msg("Compression Format")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.Extension)
	default:
		log.Debug().
			Str("type", "none").
			Msg("Compression Format")
		return nil, nil
	}

	log.Debug().
		Str("type", d.name()).
		Msg("Compression Format")
	return d, nil
}

type gzipDecompressor struct{}

func (d gzipDecompressor) decompress(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func (d gzipDecompressor) name() string { return "gzip" }

type bzip2Decompressor struct{}

func (d bzip2Decompressor) decompress(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}

func (d bzip2Decompressor) name() string { return "bzip2" }

type xzDecompressor struct{}

func (d xzDecompressor) decompress(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

func (d xzDecompressor) name() string { return "xz" }

type lz4Decompressor struct{}

func (d lz4Decompressor) decompress(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}

func (d lz4Decompressor) name() string { return "lz4" }
