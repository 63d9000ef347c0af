// Package testutil provides common test helpers for dockhand tests.
package testutil

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// SocketDir returns a short temporary directory for unix sockets. Socket
// paths are length limited and t.TempDir can exceed the limit on macOS.
func SocketDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "dh")
	if err != nil {
		t.Fatalf("failed to create socket dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// ListenUnix listens on a fresh unix socket and returns its path and the
// listener, which is closed when the test ends.
func ListenUnix(t *testing.T) (string, net.Listener) {
	t.Helper()

	path := filepath.Join(SocketDir(t), "docker.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("failed to listen on %s: %v", path, err)
	}
	t.Cleanup(func() { l.Close() })
	return path, l
}

// EngineInfo is what FakeEngine reports.
type EngineInfo struct {
	Version    string
	APIVersion string
	OSType     string
}

// FakeEngine serves the Docker API ping and version endpoints on a unix
// socket and returns the socket path.
func FakeEngine(t *testing.T, info EngineInfo) string {
	t.Helper()

	path, l := ListenUnix(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Api-Version", info.APIVersion)
		w.Header().Set("Ostype", info.OSType)
		switch {
		case strings.HasSuffix(r.URL.Path, "/_ping"):
			w.Write([]byte("OK"))
		case strings.HasSuffix(r.URL.Path, "/version"):
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"Version":    info.Version,
				"ApiVersion": info.APIVersion,
				"Os":         info.OSType,
			})
		default:
			http.NotFound(w, r)
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second}
	go srv.Serve(l)
	t.Cleanup(func() { srv.Close() })
	return path
}

// WriteFile writes data to dir/name, creating dir, and returns the path.
func WriteFile(t *testing.T, dir, name, data string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
