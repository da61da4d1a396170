// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import "time"

// Options configures a Backend.
type Options struct {
	// MaxRetries is the number of retries after the first failed attempt.
	// Zero means the default, use DisableRetries to make a single attempt.
	MaxRetries int `yaml:"max-retries"`
	// DisableRetries fails a lookup on its first failed attempt.
	DisableRetries bool `yaml:"disable-retries"`
	// RetryInterval is the initial delay between attempts, growing exponentially.
	RetryInterval time.Duration `yaml:"retry-interval"`
	// MaxRetryInterval caps the delay between attempts.
	MaxRetryInterval time.Duration `yaml:"max-retry-interval"`
	// RequestTimeout bounds each attempt. Zero means the default, a negative
	// value means no timeout.
	RequestTimeout time.Duration `yaml:"request-timeout"`
	// RequestsPerSecond limits the request rate. Zero means unlimited.
	RequestsPerSecond float64 `yaml:"requests-per-second"`
	// Burst is the rate limiter bucket size.
	Burst int `yaml:"burst"`
}

// DefaultOptions returns the default backend options.
func DefaultOptions() Options {
	return Options{
		MaxRetries:       3,
		RetryInterval:    250 * time.Millisecond,
		MaxRetryInterval: 5 * time.Second,
		RequestTimeout:   30 * time.Second,
		Burst:            10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	switch {
	case o.DisableRetries:
		o.MaxRetries = 0
	case o.MaxRetries <= 0:
		o.MaxRetries = def.MaxRetries
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = def.RequestTimeout
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = def.RetryInterval
	}
	if o.MaxRetryInterval < o.RetryInterval {
		o.MaxRetryInterval = max(def.MaxRetryInterval, o.RetryInterval)
	}
	if o.Burst <= 0 {
		o.Burst = def.Burst
	}
	return o
}
