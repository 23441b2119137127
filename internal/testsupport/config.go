package testsupport

import (
	"path/filepath"
	"testing"

	"marclink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IndexDir = filepath.Join(base, "index")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStrictMerge makes consistency failures abort the run.
func WithStrictMerge() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.Strict = true
	}
}

// WithDebugMaps points the resolver map dumps at a directory under the test root.
func WithDebugMaps() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.DebugMapsDir = filepath.Join(b.baseDir, "maps")
	}
}

// WithMetricsTextfile enables the Prometheus textfile export.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, "metrics", "marclink.prom")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.IndexDir)
}
