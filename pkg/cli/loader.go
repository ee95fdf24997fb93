package cli

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/replicate/pload/pkg/connector"
	"github.com/replicate/pload/pkg/loader"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/optname"
)

var proxyFlags = map[string]options.Key{
	optname.ProxyProtocol: options.ProxyProtocol,
	optname.ProxyHost:     options.ProxyHost,
	optname.ProxyPort:     options.ProxyPort,
	optname.ProxyAuth:     options.ProxyAuth,
	optname.ProxyUser:     options.ProxyUser,
	optname.ProxyPassword: options.ProxyPassword,
}

// NewLoader builds a Loader from the bound flags and PLOAD_* environment. Empty values are left
// unset.
func NewLoader() (*loader.Loader, error) {
	cfg := options.NewConfig()
	if viper.IsSet(optname.Timeout) {
		cfg.Timeout = viper.GetDuration(optname.Timeout)
	}
	if ua := viper.GetString(optname.UserAgent); ua != "" {
		cfg.UserAgent = ua
	}

	proxyOpts := make(map[options.Key]string)
	for flag, key := range proxyFlags {
		if v := viper.GetString(flag); v != "" {
			proxyOpts[key] = v
		}
	}
	if err := cfg.Options.SetAll(proxyOpts); err != nil {
		return nil, err
	}

	mode, err := connector.ParseMode(viper.GetString(optname.Mode))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", optname.Mode, err)
	}

	l := loader.New(
		loader.WithConfig(cfg),
		loader.WithCapabilities(connector.DetectCapabilities(viper.GetStringSlice(optname.DisableConnectors)...)),
	)
	l.SetMode(mode)

	setters := []struct {
		flag string
		set  func(string) error
	}{
		{optname.LocalFile, l.SetLocalFile},
		{optname.DataURL, l.SetRemoteDataURL},
		{optname.VersionURL, l.SetRemoteVersionURL},
	}
	for _, s := range setters {
		if v := viper.GetString(s.flag); v != "" {
			if err := s.set(v); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}
