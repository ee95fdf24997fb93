package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/optname"
)

// HostToIPResolutionMap is a map of hostnames to IP addresses
// TODO: Eliminate this global variable
var HostToIPResolutionMap = make(map[string]string)

func AddRootPersistentFlags(cmd *cobra.Command) error {
	// Persistent Flags (applies to all commands/subcommands)
	cmd.PersistentFlags().Duration(optname.Timeout, options.DefaultTimeout, "Timeout for connecting and reading, format is <number><unit>, e.g. 10s")
	cmd.PersistentFlags().String(optname.UserAgent, options.DefaultUserAgent, "User agent template, %v is replaced with the pload version")
	cmd.PersistentFlags().String(optname.Mode, "", "Connector to use (local, socket, stream, curl), default is the first available")
	cmd.PersistentFlags().String(optname.LocalFile, "", "Load the data file from this local path instead of the remote URLs")
	cmd.PersistentFlags().String(optname.DataURL, "", "URL of the remote data file")
	cmd.PersistentFlags().String(optname.VersionURL, "", "URL of the remote version/last-modified marker")
	cmd.PersistentFlags().String(optname.ProxyProtocol, "", "Proxy protocol (http, https)")
	cmd.PersistentFlags().String(optname.ProxyHost, "", "Proxy host, enables the proxy")
	cmd.PersistentFlags().String(optname.ProxyPort, "", "Proxy port")
	cmd.PersistentFlags().String(optname.ProxyAuth, "", "Proxy authentication scheme (basic, ntlm)")
	cmd.PersistentFlags().String(optname.ProxyUser, "", "Proxy user, DOMAIN\\user for ntlm")
	cmd.PersistentFlags().String(optname.ProxyPassword, "", "Proxy password")
	cmd.PersistentFlags().StringSlice(optname.DisableConnectors, []string{}, "Connectors to treat as unavailable (socket, stream, curl)")
	cmd.PersistentFlags().StringSlice(optname.Resolve, []string{}, "Resolve hostnames to specific IPs")
	cmd.PersistentFlags().BoolP(optname.Force, "f", false, "Overwrite the destination if it already exists")
	cmd.PersistentFlags().BoolP(optname.Decompress, "x", false, "Decompress gzip, bzip2, xz or lz4 payloads before writing them")
	cmd.PersistentFlags().StringP(optname.OutputConsumer, "o", "file", "Output consumer (file, stdout, null)")
	cmd.PersistentFlags().String(optname.CacheDir, defaultCacheDir(), "Directory holding the update cache and its lock")
	cmd.PersistentFlags().BoolP(optname.Verbose, "v", false, "Verbose mode (equivalent to --log-level debug)")
	cmd.PersistentFlags().String(optname.LoggingLevel, "info", "Log level (debug, info, warn, error)")

	viper.SetEnvPrefix("PLOAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind persistent flags: %w", err)
	}

	// The password is better passed through PLOAD_PROXY_PASSWORD than on the command line
	if err := cmd.PersistentFlags().MarkHidden(optname.ProxyPassword); err != nil {
		return fmt.Errorf("failed to hide flag %s: %w", optname.ProxyPassword, err)
	}
	return nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pload")
	}
	return filepath.Join(dir, "pload")
}

func PersistentStartupProcessFlags() error {
	if viper.GetBool(optname.Verbose) {
		viper.Set(optname.LoggingLevel, "debug")
	}
	setLogLevel(viper.GetString(optname.LoggingLevel))
	return convertResolveHostsToMap()
}

func setLogLevel(logLevel string) {
	// Set log-level
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func convertResolveHostsToMap() error {
	logger := logging.GetLogger()
	resolveMap, err := ResolveOverridesToMap(viper.GetStringSlice(optname.Resolve))
	if err != nil {
		return err
	}
	for hostPort, target := range resolveMap {
		HostToIPResolutionMap[hostPort] = target
		logger.Debug().Str("host_port", hostPort).Str("resolve_target", target).Msg("Config")
	}
	return nil
}

// ResolveOverridesToMap parses <hostname>:<port>:<ip> entries into a host:port -> ip:port map.
func ResolveOverridesToMap(resolveHosts []string) (map[string]string, error) {
	if len(resolveHosts) == 0 {
		return nil, nil
	}
	resolveMap := make(map[string]string)
	for _, resolveHost := range resolveHosts {
		split := strings.SplitN(resolveHost, ":", 3)
		if len(split) != 3 {
			return nil, fmt.Errorf("invalid resolve host format, expected <hostname>:port:<ip>, got: %s", resolveHost)
		}
		host, port, addr := split[0], split[1], split[2]
		if net.ParseIP(host) != nil {
			return nil, fmt.Errorf("invalid hostname specified, looks like an IP address: %s", host)
		}
		if net.ParseIP(addr) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", addr)
		}
		hostPort := net.JoinHostPort(host, port)
		target := net.JoinHostPort(addr, port)
		if existing, ok := resolveMap[hostPort]; ok && existing != target {
			return nil, fmt.Errorf("duplicate host:port specified: %s", hostPort)
		}
		resolveMap[hostPort] = target
	}
	return resolveMap, nil
}
