package loader

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/pload/pkg/connector"
	"github.com/replicate/pload/pkg/httperr"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/response"
)

type fakeConnector struct {
	kind   connector.Kind
	result *connector.RawResult
	err    error
	uris   []string
}

func (f *fakeConnector) Fetch(_ context.Context, uri string) (*connector.RawResult, error) {
	f.uris = append(f.uris, uri)
	return f.result, f.err
}
func (f *fakeConnector) Kind() connector.Kind        { return f.kind }
func (f *fakeConnector) SupportsLineStreaming() bool { return false }

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadLocal(t *testing.T) {
	l := New(WithCapabilities(connector.Capabilities{}))
	require.NoError(t, l.SetLocalFile(writeFixture(t, "This is a test")))

	resp, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, err := resp.Contents()
	require.NoError(t, err)
	assert.Equal(t, "This is a test", string(body))
}

func TestLoadLocalMissingFile(t *testing.T) {
	l := New()
	require.NoError(t, l.SetLocalFile(filepath.Join(t.TempDir(), "missing.ini")))

	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, ErrFileNotReadable)
}

func TestModificationTimeLocal(t *testing.T) {
	path := writeFixture(t, "x")
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	l := New()
	require.NoError(t, l.SetLocalFile(path))
	got, err := l.ModificationTime(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime().Unix(), got)
	assert.Equal(t, mtime.Unix(), got)

	resp, err := l.ModificationTimeResponse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mtime.Unix(), resp.LastModified().Unix())
}

func TestSetters(t *testing.T) {
	l := New()

	testCases := []struct {
		name  string
		set   func(string) error
		field string
	}{
		{"local file", l.SetLocalFile, FieldLocalFile},
		{"data url", l.SetRemoteDataURL, FieldRemoteDataURL},
		{"version url", l.SetRemoteVersionURL, FieldRemoteVersionURL},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.set("")
			var fme *options.FieldMissingError
			require.ErrorAs(t, err, &fme)
			assert.Equal(t, tc.field, fme.Field)
			assert.NoError(t, tc.set("value"))
		})
	}
}

func TestSetOptionRejectsUnknownKey(t *testing.T) {
	l := New()
	require.NoError(t, l.SetOption(options.ProxyHost, "proxy.local"))
	before := l.Config()

	for _, key := range []options.Key{"ProxyTimeout", "proxyhost", ""} {
		err := l.SetOption(key, "x")
		var ioe *options.InvalidOptionError
		require.ErrorAs(t, err, &ioe)
		assert.Equal(t, string(key), ioe.Key)
		assert.Equal(t, before, l.Config())
	}

	err := l.SetOptions(map[options.Key]string{options.ProxyPort: "8080", "Bogus": "1"})
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Equal(t, before, l.Config())
}

func TestConfigIsCopied(t *testing.T) {
	cfg := options.NewConfig()
	l := New(WithConfig(cfg))
	l.SetTimeout(time.Second)
	l.SetUserAgent("agent/%v")

	assert.Equal(t, options.DefaultTimeout, cfg.Timeout)
	got := l.Config()
	assert.Equal(t, time.Second, got.Timeout)
	assert.Equal(t, "agent/%v", got.UserAgent)
}

func TestLoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.ini":
			_, _ = w.Write([]byte("[section]\nkey=value\n"))
		case "/version.txt":
			_, _ = w.Write([]byte("1700000000\n"))
		case "/bad-version.txt":
			_, _ = w.Write([]byte("not a date"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	for _, mode := range []connector.Mode{connector.ModeSocket, connector.ModeStream, connector.ModeCurl} {
		t.Run(mode.String(), func(t *testing.T) {
			l := New()
			l.SetMode(mode)
			require.NoError(t, l.SetRemoteDataURL(server.URL+"/data.ini"))
			require.NoError(t, l.SetRemoteVersionURL(server.URL+"/version.txt"))

			resp, err := l.Load(context.Background())
			require.NoError(t, err)
			body, err := resp.Contents()
			require.NoError(t, err)
			assert.Equal(t, "[section]\nkey=value\n", string(body))

			mtime, err := l.ModificationTime(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(1700000000), mtime)

			require.NoError(t, l.SetRemoteVersionURL(server.URL+"/bad-version.txt"))
			_, err = l.ModificationTime(context.Background())
			assert.ErrorIs(t, err, ErrInvalidDateTime)

			require.NoError(t, l.SetRemoteDataURL(server.URL+"/missing"))
			_, err = l.Load(context.Background())
			var se *httperr.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 404, se.Code)
			assert.Equal(t, "HTTP client error 404: Not Found", se.Error())
		})
	}
}

func TestLoadRemoteRequiresURL(t *testing.T) {
	l := New()
	l.SetMode(connector.ModeCurl)

	_, err := l.Load(context.Background())
	var fme *options.FieldMissingError
	require.ErrorAs(t, err, &fme)
	assert.Equal(t, FieldRemoteDataURL, fme.Field)

	_, err = l.ModificationTime(context.Background())
	require.ErrorAs(t, err, &fme)
	assert.Equal(t, FieldRemoteVersionURL, fme.Field)
}

func TestLoadNoValidConnector(t *testing.T) {
	l := New(WithCapabilities(connector.Capabilities{}))
	require.NoError(t, l.SetRemoteDataURL("http://example.com/data.ini"))
	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoValidConnector)
}

func TestLoadModeLocalWithoutFile(t *testing.T) {
	l := New()
	l.SetMode(connector.ModeLocal)
	_, err := l.Load(context.Background())
	var fme *options.FieldMissingError
	require.ErrorAs(t, err, &fme)
	assert.Equal(t, FieldLocalFile, fme.Field)
}

func TestLoadSocketRedirectWithoutBody(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("HTTP/1.0 302 Found\r\nLocation: /elsewhere\r\n\r\n"))
	}()

	l := New()
	l.SetMode(connector.ModeSocket)
	require.NoError(t, l.SetRemoteDataURL("http://"+ln.Addr().String()+"/data.ini"))
	_, err = l.Load(context.Background())
	assert.ErrorIs(t, err, ErrRemoteUpdateNotPossible)
}

func TestLoadExplicitConnector(t *testing.T) {
	var header response.Header
	header.Add("X-Source", "fake")
	fake := &fakeConnector{
		kind:   connector.KindCurl,
		result: &connector.RawResult{StatusCode: 200, Header: header, Body: []byte("payload")},
	}

	l := New(WithCapabilities(connector.Capabilities{}))
	l.SetConnector(fake)
	require.NoError(t, l.SetRemoteDataURL("http://example.com/data.ini"))

	resp, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, "fake", resp.Header.Get("x-source"))
	assert.Equal(t, []string{"http://example.com/data.ini"}, fake.uris)

	l.SetMode(connector.ModeUnset)
	_, err = l.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoValidConnector)
}

func TestLoadExplicitLocalConnector(t *testing.T) {
	path := writeFixture(t, "explicit local")
	mtime := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	l := New(WithCapabilities(connector.Capabilities{}))
	l.SetConnector(connector.NewLocalConnector(path))

	resp, err := l.Load(context.Background())
	require.NoError(t, err)
	body, err := resp.Contents()
	require.NoError(t, err)
	assert.Equal(t, "explicit local", string(body))

	got, err := l.ModificationTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mtime.Unix(), got)
}

func TestLoadNoData(t *testing.T) {
	testCases := []struct {
		name     string
		kind     connector.Kind
		result   *connector.RawResult
		expected error
	}{
		{"remote nil result", connector.KindSocket, nil, ErrRemoteUpdateNotPossible},
		{"remote missing status", connector.KindSocket, &connector.RawResult{}, ErrRemoteUpdateNotPossible},
		{"remote redirect", connector.KindStream, &connector.RawResult{StatusCode: 304}, ErrRemoteUpdateNotPossible},
		{"local nil result", connector.KindLocal, nil, ErrCannotLoadLocalFile},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := New()
			l.SetConnector(&fakeConnector{kind: tc.kind, result: tc.result})
			require.NoError(t, l.SetLocalFile("/nonexistent"))
			require.NoError(t, l.SetRemoteDataURL("http://example.com/"))
			_, err := l.Load(context.Background())
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestLoadClassifiesEveryResult(t *testing.T) {
	fake := &fakeConnector{
		kind:   connector.KindSocket,
		result: &connector.RawResult{StatusCode: 503, Body: []byte("down")},
	}
	l := New()
	l.SetConnector(fake)
	require.NoError(t, l.SetRemoteDataURL("http://example.com/"))

	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, httperr.ErrServerError)
	assert.EqualError(t, err, "HTTP server error 503")
}

func TestLoadLogsCall(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	l := New(WithLogger(logger))
	require.NoError(t, l.SetLocalFile(writeFixture(t, "abc")))
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"call_id"`)
	assert.Contains(t, out, `"connector":"local"`)
	assert.Contains(t, out, `"size":"3 B"`)
}

func TestParseModificationTime(t *testing.T) {
	testCases := []struct {
		in       string
		expected int64
		err      bool
	}{
		{"1700000000", 1700000000, false},
		{" 1700000000\n", 1700000000, false},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 1445412480, false},
		{"2015-10-21T07:28:00Z", 1445412480, false},
		{"2015-10-21 07:28:00", 1445412480, false},
		{"", 0, true},
		{"not a date", 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseModificationTime(tc.in)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidDateTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
