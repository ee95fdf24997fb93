package connector

import (
	"strings"

	"github.com/replicate/pload/pkg/options"
)

// Capabilities describes which transports the runtime offers. The factory consults it instead of
// probing the environment, so tests can simulate any platform.
type Capabilities struct {
	Sockets  bool
	URLFopen bool
	Curl     bool
}

// DetectCapabilities reports every transport as available, minus the named ones
// (socket, stream, curl).
func DetectCapabilities(disabled ...string) Capabilities {
	caps := Capabilities{Sockets: true, URLFopen: true, Curl: true}
	for _, name := range disabled {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "socket":
			caps.Sockets = false
		case "stream":
			caps.URLFopen = false
		case "curl":
			caps.Curl = false
		}
	}
	return caps
}

// Build selects a connector. The first matching rule wins:
//
//  1. a local file is set and mode is unset or local: LocalConnector. An empty path with mode
//     local is a FieldMissing("localFile") error.
//  2. mode is unset or socket and sockets are available: SocketConnector.
//  3. mode is unset or stream and URL streams are available: StreamConnector.
//  4. mode is unset or curl and curl is available: CurlConnector.
//  5. instance is non-nil: instance, unchanged.
//  6. ErrNoValidConnector.
//
// A non-nil instance takes the place of the mode, so rules 1-4 never match it.
func Build(cfg *options.Config, caps Capabilities, mode Mode, instance Connector, localFile *string) (Connector, error) {
	allows := func(m Mode) bool {
		if instance != nil {
			return false
		}
		return mode == ModeUnset || mode == m
	}

	if allows(ModeLocal) {
		if localFile != nil && *localFile != "" {
			return NewLocalConnector(*localFile), nil
		}
		if mode == ModeLocal || localFile != nil {
			return nil, options.FieldMissing("localFile")
		}
	}
	if allows(ModeSocket) && caps.Sockets {
		return NewSocketConnector(cfg), nil
	}
	if allows(ModeStream) && caps.URLFopen {
		return NewStreamConnector(cfg), nil
	}
	if allows(ModeCurl) && caps.Curl {
		return NewCurlConnector(cfg), nil
	}
	if instance != nil {
		return instance, nil
	}
	return nil, ErrNoValidConnector
}
