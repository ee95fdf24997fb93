package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/pload/pkg/connector"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/optname"
)

func TestNewLoader(t *testing.T) {
	defer viper.Reset()
	path := filepath.Join(t.TempDir(), "data.ini")
	require.NoError(t, os.WriteFile(path, []byte("This is a test"), 0o644))

	viper.Set(optname.Timeout, 3*time.Second)
	viper.Set(optname.UserAgent, "custom/%v")
	viper.Set(optname.Mode, "local")
	viper.Set(optname.LocalFile, path)
	viper.Set(optname.ProxyHost, "proxy.local")
	viper.Set(optname.ProxyPort, "3128")

	l, err := NewLoader()
	require.NoError(t, err)
	assert.Equal(t, connector.ModeLocal, l.Mode())

	cfg := l.Config()
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "custom/%v", cfg.UserAgent)
	assert.Equal(t, options.Options{options.ProxyHost: "proxy.local", options.ProxyPort: "3128"}, cfg.Options)

	resp, err := l.Load(context.Background())
	require.NoError(t, err)
	body, err := resp.Contents()
	require.NoError(t, err)
	assert.Equal(t, "This is a test", string(body))
}

func TestNewLoaderInvalidMode(t *testing.T) {
	defer viper.Reset()
	viper.Set(optname.Mode, "ftp")
	_, err := NewLoader()
	assert.Error(t, err)
}

func TestNewLoaderDisabledConnectors(t *testing.T) {
	defer viper.Reset()
	viper.Set(optname.DisableConnectors, []string{"socket", "stream", "curl"})
	viper.Set(optname.DataURL, "http://example.com/data.ini")

	l, err := NewLoader()
	require.NoError(t, err)
	_, err = l.Load(context.Background())
	assert.ErrorIs(t, err, connector.ErrNoValidConnector)
}
