package pload_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pload "github.com/replicate/pload/pkg"
	"github.com/replicate/pload/pkg/consumer"
	"github.com/replicate/pload/pkg/loader"
	"github.com/replicate/pload/pkg/response"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

type staticSource struct {
	data []byte
	err  error
}

func (s staticSource) Load(context.Context) (*response.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return response.FromBytes(200, "", response.Header{}, s.data)
}

func gzipped(t *testing.T, data string) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestLoadFileFromLoader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.ini")
	require.NoError(t, os.WriteFile(src, []byte("This is a test"), 0o644))

	l := loader.New()
	require.NoError(t, l.SetLocalFile(src))

	dest := filepath.Join(dir, "dest.ini")
	getter := &pload.Getter{Source: l}
	size, _, err := getter.LoadFile(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, int64(14), size)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "This is a test", string(got))
}

func TestLoadFileDecompress(t *testing.T) {
	compressed := gzipped(t, "[a]\nb=c\n")
	dest := filepath.Join(t.TempDir(), "data.ini")

	getter := &pload.Getter{Source: staticSource{data: compressed}, Decompress: true}
	size, _, err := getter.LoadFile(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(compressed)), size)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "[a]\nb=c\n", string(got))
}

func TestLoadFileWithoutDecompressKeepsBytes(t *testing.T) {
	compressed := gzipped(t, "payload")
	var out bytes.Buffer
	getter := &pload.Getter{Source: staticSource{data: compressed}, Consumer: &consumer.StdoutConsumer{Out: &out}}
	_, _, err := getter.LoadFile(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, compressed, out.Bytes())
}

func TestLoadFileSourceError(t *testing.T) {
	boom := errors.New("boom")
	getter := &pload.Getter{Source: staticSource{err: boom}, Consumer: &consumer.NullWriter{}}
	_, _, err := getter.LoadFile(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}
