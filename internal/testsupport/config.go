package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"qbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The HTTP API is disabled unless WithAPIBind is given, and the bus address
// points at a socket that does not exist.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RuntimeDir = filepath.Join(base, "run")
	cfgVal.DBus.Address = "unix:path=" + filepath.Join(base, "missing-bus")
	cfgVal.API.Bind = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithAPIBind enables the HTTP API on bind, usually "127.0.0.1:0".
func WithAPIBind(bind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Bind = bind
	}
}

// WithBusAddress overrides the bus address.
func WithBusAddress(address string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DBus.Bus = config.BusAddress
		b.cfg.DBus.Address = address
	}
}

// SocketDir returns a short-lived directory for Unix sockets. t.TempDir paths
// can exceed the sun_path limit, so this one lives directly under os.TempDir.
func SocketDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "qb")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}
