package cache

// config.go defines the common configuration knobs every cache handle
// carries ("Recognised common options") plus the functional
// Option mechanism used to plug in ambient infrastructure (logger, metrics
// registry) the way pkg/config.go wires WithLogger/WithMetrics.
//
// © 2025 oauth2-cache authors. MIT License.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultKeyHashAlgo    = "sha256"
	defaultMaxKeySize      = 64
	defaultMaxValSize      = 1024
	defaultMaxEntries      = 1000
	defaultFileCleanInterval = 60 * time.Second
	defaultTimeout         = 2 * time.Second
)

// config bundles the knobs that influence Cache (façade) behaviour, as
// opposed to back-end-specific knobs (max_entries, dir, servers, ...) which
// each back-end parses for itself out of the same Options value.
type config struct {
	name         string
	keyHashAlgo  string
	encrypt      bool
	encryptSet   bool // true if the caller explicitly passed "encrypt"
	passphrase   string

	logger  *zap.Logger
	metrics *promMetrics
}

// Option is a functional option applied to a Cache at Init time.
type Option func(*config)

// WithLogger plugs an external zap.Logger. The façade never logs on the
// Get/Set hot path - only at construction and on decrypt failure.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for every Cache handle
// created with this option. Passing nil disables metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) {
		if reg != nil {
			c.metrics = newPromMetrics(reg)
		}
	}
}

func defaultConfig() *config {
	return &config{
		keyHashAlgo: defaultKeyHashAlgo,
		logger:      zap.NewNop(),
	}
}

// applyCommonOptions copies the options common to every back-end out of
// opts into cfg. Back-end-specific options (max_entries, dir, servers, ...)
// are left untouched in opts for the back-end constructor to read itself.
func applyCommonOptions(cfg *config, opts Options, desc Descriptor) {
	cfg.name = opts.GetDefault("name", "default")
	cfg.keyHashAlgo = opts.GetDefault("key_hash_algo", defaultKeyHashAlgo)
	cfg.passphrase = opts.Get("passphrase")

	if opts.Has("encrypt") {
		cfg.encrypt = opts.GetBool("encrypt", desc.DefaultEncrypt)
		cfg.encryptSet = true
	} else {
		cfg.encrypt = desc.DefaultEncrypt
	}
}
