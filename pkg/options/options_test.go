package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/pload/pkg/version"
)

func TestOptionsSet(t *testing.T) {
	testCases := []struct {
		name string
		key  Key
		err  bool
	}{
		{"ProxyProtocol", ProxyProtocol, false},
		{"ProxyHost", ProxyHost, false},
		{"ProxyPort", ProxyPort, false},
		{"ProxyAuth", ProxyAuth, false},
		{"ProxyUser", ProxyUser, false},
		{"ProxyPassword", ProxyPassword, false},
		{"lower case key", "proxyhost", true},
		{"unknown key", "ProxyTimeout", true},
		{"empty key", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{ProxyHost: "before"}
			err := opts.Set(tc.key, "value")
			if !tc.err {
				require.NoError(t, err)
				assert.Equal(t, "value", opts.Value(tc.key))
				return
			}
			assert.ErrorIs(t, err, ErrInvalidOption)
			var ioe *InvalidOptionError
			require.ErrorAs(t, err, &ioe)
			assert.Equal(t, string(tc.key), ioe.Key)
			assert.Equal(t, Options{ProxyHost: "before"}, opts)
		})
	}
}

func TestOptionsSetAllIsAtomic(t *testing.T) {
	opts := Options{}
	err := opts.SetAll(map[Key]string{ProxyHost: "proxy.example.com", "Bogus": "x"})
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Empty(t, opts)

	require.NoError(t, opts.SetAll(map[Key]string{ProxyHost: "proxy.example.com", ProxyPort: "3128"}))
	assert.Equal(t, "3128", opts.Value(ProxyPort))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []Key{ProxyAuth, ProxyHost, ProxyPassword, ProxyPort, ProxyProtocol, ProxyUser}, Keys())
}

func TestConfig(t *testing.T) {
	defer func() { version.Version = "" }()
	version.Version = "2.1.0"

	cfg := NewConfig()
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "pload/2.1.0", cfg.FormattedUserAgent())

	cfg.UserAgent = "Data Loader %v (%v)"
	assert.Equal(t, "Data Loader 2.1.0 (2.1.0)", cfg.FormattedUserAgent())

	clone := cfg.Clone()
	require.NoError(t, clone.Options.Set(ProxyHost, "proxy"))
	_, ok := cfg.Options.Get(ProxyHost)
	assert.False(t, ok)
}

func TestFieldMissing(t *testing.T) {
	err := FieldMissing("localFile")
	assert.ErrorIs(t, err, ErrFieldMissing)
	assert.EqualError(t, err, "field missing: localFile")
}
