package tcpool

import (
	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/pagecache"
	"github.com/cloudfly/tcpool/sizeclass"
)

type config struct {
	threshold int
	logger    *zap.Logger
	metrics   *Metrics
	pager     pagecache.Pager
}

// Option configures a Pool at construction time.
type Option func(*config)

// WithThreshold overrides the per-size-class thread-cache drain
// threshold (default sizeclass.DefaultThreshold).
func WithThreshold(n int) Option {
	return func(c *config) { c.threshold = n }
}

// WithLogger sets the logger tier-boundary and slow-path events are
// reported through (default: a no-op logger).
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.logger = log }
}

// WithMetrics enables Prometheus reporting (default: disabled).
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithPager overrides the OS page-mapping primitive (default: a real
// mmap-backed pager on unix, a heap-backed one elsewhere). Tests use
// this to inject a fake.
func WithPager(p pagecache.Pager) Option {
	return func(c *config) { c.pager = p }
}

func newConfig(opts ...Option) config {
	cfg := config{threshold: sizeclass.DefaultThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.pager == nil {
		cfg.pager = defaultPager()
	}
	return cfg
}
