// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"context"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/vechain/forkstate/acc"
	"github.com/vechain/forkstate/log"
	"github.com/vechain/forkstate/metrics"
)

var (
	logger = log.WithContext("pkg", "remote")

	metricRequestCount    = metrics.LazyLoadCounterVec("remote_request_count", []string{"op", "result"})
	metricRequestDuration = metrics.LazyLoadHistogramVec("remote_request_duration_ms", []string{"op"}, metrics.BucketRemoteCall)
)

// Backend performs remote lookups through a Transport, retrying transient
// failures with exponential backoff and optionally limiting the request rate.
// A Backend is safe for concurrent use.
type Backend struct {
	transport Transport
	opts      Options
	limiter   *rate.Limiter
}

// NewBackend creates a backend over transport.
func NewBackend(transport Transport, opts Options) *Backend {
	opts = opts.withDefaults()
	b := &Backend{
		transport: transport,
		opts:      opts,
	}
	if opts.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}
	return b
}

// Account fetches the account at tag. A nil account means it does not exist.
func (b *Backend) Account(ctx context.Context, addr common.Address, tag BlockTag) (*acc.Account, error) {
	return call(ctx, b, OpAccount, addr.Hex(), tag, func(ctx context.Context) (*acc.Account, error) {
		return b.transport.Account(ctx, addr, tag)
	})
}

// StorageAt fetches a storage value at tag.
func (b *Backend) StorageAt(ctx context.Context, addr common.Address, slot common.Hash, tag BlockTag) (common.Hash, error) {
	return call(ctx, b, OpStorage, addr.Hex()+"/"+slot.Hex(), tag, func(ctx context.Context) (common.Hash, error) {
		return b.transport.StorageAt(ctx, addr, slot, tag)
	})
}

// CodeAt fetches the code of addr at tag.
func (b *Backend) CodeAt(ctx context.Context, addr common.Address, tag BlockTag) ([]byte, error) {
	return call(ctx, b, OpCode, addr.Hex(), tag, func(ctx context.Context) ([]byte, error) {
		return b.transport.CodeAt(ctx, addr, tag)
	})
}

// BlockNumber fetches the number of the chain head.
func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, b, OpHead, "blockNumber", Latest, b.transport.BlockNumber)
}

// ResolveBlock resolves tag to a block number.
func (b *Backend) ResolveBlock(ctx context.Context, tag BlockTag) (uint64, error) {
	if n, ok := tag.Number(); ok {
		return n, nil
	}
	return call(ctx, b, OpHead, "resolve", tag, func(ctx context.Context) (uint64, error) {
		return b.transport.ResolveBlock(ctx, tag)
	})
}

// ChainID fetches the chain id.
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return call(ctx, b, OpHead, "chainId", Latest, b.transport.ChainID)
}

func (b *Backend) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.opts.RetryInterval
	exp.MaxInterval = b.opts.MaxRetryInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(b.opts.MaxRetries)), ctx)
}

// isPermanent reports whether err can not be cured by retrying.
func isPermanent(err error) bool {
	return errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrBlockNotFound)
}

func call[T any](ctx context.Context, b *Backend, op Op, key string, tag BlockTag, fn func(context.Context) (T, error)) (T, error) {
	var (
		result   T
		attempts int
		labels   = map[string]string{"op": op.String()}
	)

	attempt := func() error {
		attempts++
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		actx, cancel := ctx, context.CancelFunc(func() {})
		if b.opts.RequestTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, b.opts.RequestTimeout)
		}
		defer cancel()

		start := time.Now()
		v, err := fn(actx)
		metricRequestDuration().ObserveWithLabels(time.Since(start).Milliseconds(), labels)
		if err != nil {
			if isPermanent(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("remote request failed, retrying", "op", op, "key", key, "tag", tag, "attempt", attempts, "next", next, "err", err)
	}

	if err := backoff.RetryNotify(attempt, b.newBackOff(ctx), notify); err != nil {
		metricRequestCount().AddWithLabel(1, map[string]string{"op": op.String(), "result": "failure"})
		var zero T
		return zero, &FetchError{Op: op, Key: key, Tag: tag, Attempts: attempts, Err: err}
	}
	metricRequestCount().AddWithLabel(1, map[string]string{"op": op.String(), "result": "success"})
	return result, nil
}
