// Package loader fetches the data file and its modification time through whichever connector the
// factory selects for the current configuration.
//
// A Loader holds no goroutines and no locks. Each call clones the configuration, so setters may be
// used between calls but a Loader must not be shared by concurrent callers that mutate it.
package loader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/replicate/pload/pkg/connector"
	"github.com/replicate/pload/pkg/httperr"
	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/response"
)

type Loader struct {
	config     *options.Config
	caps       connector.Capabilities
	mode       connector.Mode
	instance   connector.Connector
	localFile  *string
	dataURL    string
	versionURL string
	logger     zerolog.Logger
}

type Option func(*Loader)

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithCapabilities(caps connector.Capabilities) Option {
	return func(l *Loader) {
		l.caps = caps
	}
}

// WithConfig replaces the default configuration. The loader keeps its own copy.
func WithConfig(cfg *options.Config) Option {
	return func(l *Loader) {
		if cfg != nil {
			l.config = cfg.Clone()
		}
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{
		config: options.NewConfig(),
		caps:   connector.DetectCapabilities(),
		logger: logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) SetTimeout(timeout time.Duration) {
	l.config.Timeout = timeout
}

func (l *Loader) SetUserAgent(userAgent string) {
	l.config.UserAgent = userAgent
}

// SetOption sets one proxy option. An unknown key is rejected and leaves the loader unchanged.
func (l *Loader) SetOption(key options.Key, value string) error {
	return l.config.Options.Set(key, value)
}

// SetOptions sets every pair or, if any key is unknown, none of them.
func (l *Loader) SetOptions(values map[options.Key]string) error {
	return l.config.Options.SetAll(values)
}

// SetMode selects a connector kind and discards any connector given to SetConnector.
func (l *Loader) SetMode(mode connector.Mode) {
	l.mode = mode
	l.instance = nil
}

// SetConnector makes every call use conn. A nil conn goes back to mode based selection.
func (l *Loader) SetConnector(conn connector.Connector) {
	l.instance = conn
	l.mode = connector.ModeUnset
}

func (l *Loader) SetLocalFile(path string) error {
	if path == "" {
		return options.FieldMissing(FieldLocalFile)
	}
	l.localFile = &path
	return nil
}

// ClearLocalFile drops the local file so the factory selects a remote connector again.
func (l *Loader) ClearLocalFile() {
	l.localFile = nil
}

func (l *Loader) SetRemoteDataURL(u string) error {
	if u == "" {
		return options.FieldMissing(FieldRemoteDataURL)
	}
	l.dataURL = u
	return nil
}

func (l *Loader) SetRemoteVersionURL(u string) error {
	if u == "" {
		return options.FieldMissing(FieldRemoteVersionURL)
	}
	l.versionURL = u
	return nil
}

// Config returns a copy of the current configuration.
func (l *Loader) Config() *options.Config {
	return l.config.Clone()
}

func (l *Loader) Mode() connector.Mode {
	return l.mode
}

// Load fetches the data file.
func (l *Loader) Load(ctx context.Context) (*response.Response, error) {
	conn, cfg, err := l.connector()
	if err != nil {
		return nil, err
	}
	uri, err := l.target(conn, l.dataURL, FieldRemoteDataURL)
	if err != nil {
		return nil, err
	}
	return l.fetch(ctx, conn, cfg, uri, "data")
}

// ModificationTime returns the data file's modification time in unix seconds. Locally it is the
// file's mtime; remotely it is the body of the version URL, which must parse as a date.
func (l *Loader) ModificationTime(ctx context.Context) (int64, error) {
	resp, err := l.ModificationTimeResponse(ctx)
	if err != nil {
		return 0, err
	}
	body, err := resp.Contents()
	if err != nil {
		return 0, fmt.Errorf("reading modification time: %w", err)
	}
	return ParseModificationTime(string(body))
}

// ModificationTimeResponse returns the raw version response. For a local file the body is the
// mtime in unix seconds and Last-Modified carries the same instant.
func (l *Loader) ModificationTimeResponse(ctx context.Context) (*response.Response, error) {
	conn, cfg, err := l.connector()
	if err != nil {
		return nil, err
	}
	if mt, ok := conn.(modTimer); ok {
		return l.localModTime(ctx, conn, mt)
	}
	uri, err := l.target(conn, l.versionURL, FieldRemoteVersionURL)
	if err != nil {
		return nil, err
	}
	return l.fetch(ctx, conn, cfg, uri, "version")
}

type modTimer interface {
	ModTime(ctx context.Context) (time.Time, error)
}

func (l *Loader) localModTime(ctx context.Context, conn connector.Connector, mt modTimer) (*response.Response, error) {
	mtime, err := mt.ModTime(ctx)
	if err != nil {
		return nil, err
	}
	var header response.Header
	header.Add("Last-Modified", mtime.UTC().Format(http.TimeFormat))
	resp, err := response.FromBytes(http.StatusOK, "", header, []byte(strconv.FormatInt(mtime.Unix(), 10)))
	if err != nil {
		return nil, err
	}
	l.logger.Debug().
		Str("connector", conn.Kind().String()).
		Int64("mtime", mtime.Unix()).
		Msg("Modification Time")
	return resp, nil
}

// connector freezes the configuration for one call and asks the factory for a connector.
func (l *Loader) connector() (connector.Connector, *options.Config, error) {
	cfg := l.config.Clone()
	conn, err := connector.Build(cfg, l.caps, l.mode, l.instance, l.localFile)
	if err != nil {
		return nil, nil, err
	}
	return conn, cfg, nil
}

// target picks the uri handed to conn. An explicit local instance carries its own path, so the
// loader's local file is optional for it.
func (l *Loader) target(conn connector.Connector, remote, field string) (string, error) {
	if conn.Kind() == connector.KindLocal {
		switch {
		case l.localFile != nil:
			return *l.localFile, nil
		case l.instance != nil:
			return "", nil
		}
		return "", options.FieldMissing(FieldLocalFile)
	}
	if remote == "" {
		return "", options.FieldMissing(field)
	}
	return remote, nil
}

func (l *Loader) fetch(ctx context.Context, conn connector.Connector, cfg *options.Config, uri, what string) (*response.Response, error) {
	callID := uuid.NewString()
	start := time.Now()
	l.logger.Debug().
		Str("call_id", callID).
		Str("connector", conn.Kind().String()).
		Str("url", uri).
		Str("timeout", cfg.Timeout.String()).
		Msgf("Fetching %s", what)

	raw, err := conn.Fetch(ctx, uri)
	if err != nil {
		l.logger.Debug().Str("call_id", callID).Err(err).Msg("Fetch Failed")
		return nil, err
	}
	if raw != nil {
		if statusErr := httperr.Classify(raw.StatusCode); statusErr != nil {
			return nil, statusErr
		}
	}
	if noData(raw) {
		if conn.Kind() == connector.KindLocal {
			return nil, fmt.Errorf("%w: %s", ErrCannotLoadLocalFile, uri)
		}
		return nil, fmt.Errorf("%w: %s", ErrRemoteUpdateNotPossible, uri)
	}

	resp, err := response.FromBytes(raw.StatusCode, raw.Reason, raw.Header, raw.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCannotLoadRemoteFile, uri, err)
	}
	l.logger.Debug().
		Str("call_id", callID).
		Int("status", resp.StatusCode).
		Str("size", humanize.Bytes(uint64(len(raw.Body)))).
		Dur("elapsed", time.Since(start)).
		Msgf("Fetched %s", what)
	return resp, nil
}

// noData reports a result that carries nothing usable: no result, a missing status line or a
// non-2xx status without a body.
func noData(raw *connector.RawResult) bool {
	if raw == nil || raw.StatusCode == 0 {
		return true
	}
	return len(raw.Body) == 0 && (raw.StatusCode < 200 || raw.StatusCode > 299)
}

// ParseModificationTime accepts unix seconds or any date layout dateparse recognizes. Dates
// without a zone are read as UTC.
func ParseModificationTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDateTime)
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return secs, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	return t.Unix(), nil
}
