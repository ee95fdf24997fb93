package multifile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/pload/pkg/optname"
)

func validManifest(dir string) string {
	return `
https://example.com/file1.ini ` + filepath.Join(dir, "file1.ini") + `
# comment
/srv/data/file2.ini ` + filepath.Join(dir, "file2.ini") + `

http://example.com/file3.ini   ` + filepath.Join(dir, "file3.ini") + `
`
}

func TestParseLine(t *testing.T) {
	validLine := "https://example.com/file1.ini /tmp/file1.ini"
	invalidLine := "https://example.com/file1.ini"

	source, dest, err := parseLine(validLine)
	assert.Equal(t, "https://example.com/file1.ini", source)
	assert.Equal(t, "/tmp/file1.ini", dest)
	assert.NoError(t, err)

	_, _, err = parseLine(invalidLine)
	assert.Error(t, err)
}

func TestCheckSeenDests(t *testing.T) {
	seenDests := map[string]string{
		"/tmp/file1.ini": "https://example.com/file1.ini",
	}

	assert.NoError(t, checkSeenDests(seenDests, "/tmp/file2.ini", "https://example.com/file1.ini"))
	assert.Error(t, checkSeenDests(seenDests, "/tmp/file1.ini", "https://example.com/file1.ini"))
	assert.Error(t, checkSeenDests(seenDests, "/tmp/file1.ini", "https://example.com/file2.ini"))
}

func TestParseManifest(t *testing.T) {
	defer viper.Reset()
	dir := t.TempDir()

	entries, err := parseManifest(strings.NewReader(validManifest(dir)))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, manifestEntry{"https://example.com/file1.ini", filepath.Join(dir, "file1.ini")}, entries[0])
	assert.True(t, entries[0].remote())
	assert.False(t, entries[1].remote())
	assert.True(t, entries[2].remote())

	_, err = parseManifest(strings.NewReader("https://example.com/file1.ini"))
	assert.Error(t, err)

	dup := "https://example.com/a.ini /tmp/x.ini\nhttps://example.com/b.ini /tmp/x.ini\n"
	_, err = parseManifest(strings.NewReader(dup))
	assert.Error(t, err)

	// the null consumer writes nothing, so destinations are not checked
	viper.Set(optname.OutputConsumer, "null")
	entries, err = parseManifest(strings.NewReader(dup))
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestParseManifestExistingDest(t *testing.T) {
	defer viper.Reset()
	dest := filepath.Join(t.TempDir(), "exists.ini")
	require.NoError(t, os.WriteFile(dest, []byte("x"), 0o644))

	_, err := parseManifest(strings.NewReader("https://example.com/a.ini " + dest))
	assert.Error(t, err)

	viper.Set(optname.Force, true)
	_, err = parseManifest(strings.NewReader("https://example.com/a.ini " + dest))
	assert.NoError(t, err)
}

func TestManifestFile(t *testing.T) {
	_, err := manifestFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	f, err := manifestFile("-")
	require.NoError(t, err)
	assert.Equal(t, os.Stdin, f)
}
