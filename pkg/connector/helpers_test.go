package connector

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replicate/pload/pkg/options"
)

// serveRaw accepts connections on a loopback listener, records each request head and answers with
// reply verbatim before closing the connection.
func serveRaw(t *testing.T, reply string) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	requests := make(chan string, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				br := bufio.NewReader(conn)
				var head strings.Builder
				for {
					line, err := br.ReadString('\n')
					head.WriteString(line)
					if err != nil || line == "\r\n" {
						break
					}
				}
				requests <- head.String()
				_, _ = conn.Write([]byte(reply))
			}(conn)
		}
	}()
	return ln.Addr().String(), requests
}

func testConfig() *options.Config {
	cfg := options.NewConfig()
	cfg.UserAgent = "pload-test"
	return cfg
}
