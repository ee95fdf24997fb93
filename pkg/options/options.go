// Package options holds the loader configuration shared by every connector: timeout, user agent
// and the closed set of proxy options.
package options

import (
	"sort"
	"strings"
	"time"

	"github.com/replicate/pload/pkg/version"
)

type Key string

const (
	ProxyProtocol Key = "ProxyProtocol"
	ProxyHost     Key = "ProxyHost"
	ProxyPort     Key = "ProxyPort"
	ProxyAuth     Key = "ProxyAuth"
	ProxyUser     Key = "ProxyUser"
	ProxyPassword Key = "ProxyPassword"
)

const (
	DefaultTimeout = 5 * time.Second
	// DefaultUserAgent carries VersionToken, replaced at request time.
	DefaultUserAgent = "pload/" + VersionToken
	VersionToken     = "%v"
)

var validKeys = map[Key]struct{}{
	ProxyProtocol: {},
	ProxyHost:     {},
	ProxyPort:     {},
	ProxyAuth:     {},
	ProxyUser:     {},
	ProxyPassword: {},
}

// Keys returns the valid option keys in sorted order.
func Keys() []Key {
	keys := make([]Key, 0, len(validKeys))
	for k := range validKeys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func IsValidKey(key Key) bool {
	_, ok := validKeys[key]
	return ok
}

// Options maps a subset of the valid keys to their values. A key that is absent is unset; a key
// present with an empty value is set to the empty string.
type Options map[Key]string

func (o Options) Set(key Key, value string) error {
	if !IsValidKey(key) {
		return InvalidOption(string(key), value)
	}
	o[key] = value
	return nil
}

// SetAll applies every pair or none of them.
func (o Options) SetAll(values map[Key]string) error {
	for k, v := range values {
		if !IsValidKey(k) {
			return InvalidOption(string(k), v)
		}
	}
	for k, v := range values {
		o[k] = v
	}
	return nil
}

func (o Options) Get(key Key) (string, bool) {
	v, ok := o[key]
	return v, ok
}

// Value returns the option value, or "" when unset.
func (o Options) Value(key Key) string {
	return o[key]
}

func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Config is the loader configuration. Connectors read it during a call and never modify it.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Options   Options
}

func NewConfig() *Config {
	return &Config{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Options:   Options{},
	}
}

// FormattedUserAgent substitutes the version token in the user agent template.
func (c *Config) FormattedUserAgent() string {
	return strings.ReplaceAll(c.UserAgent, VersionToken, version.UserAgentToken())
}

// Clone returns a deep copy, used to freeze the configuration for one call.
func (c *Config) Clone() *Config {
	return &Config{
		Timeout:   c.Timeout,
		UserAgent: c.UserAgent,
		Options:   c.Options.Clone(),
	}
}
