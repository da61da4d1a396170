// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errTransient = errors.New("connection reset")

func testOptions() Options {
	return Options{
		MaxRetries:       2,
		RetryInterval:    time.Millisecond,
		MaxRetryInterval: 2 * time.Millisecond,
		RequestTimeout:   time.Second,
	}
}

func TestBackendRetriesTransientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewMockTransport(ctrl)
	b := NewBackend(tr, testOptions())

	addr := common.Address{1}
	slot := common.Hash{2}
	tag := NumberTag(10)

	tr.EXPECT().StorageAt(gomock.Any(), addr, slot, tag).Return(common.Hash{}, errTransient).Times(2)
	tr.EXPECT().StorageAt(gomock.Any(), addr, slot, tag).Return(common.Hash{3}, nil)

	v, err := b.StorageAt(context.Background(), addr, slot, tag)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{3}, v)
}

func TestBackendExhaustedRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewMockTransport(ctrl)
	b := NewBackend(tr, testOptions())

	addr := common.Address{1}
	tr.EXPECT().Account(gomock.Any(), addr, NumberTag(1)).Return(nil, errTransient).Times(3)

	a, err := b.Account(context.Background(), addr, NumberTag(1))
	assert.Nil(t, a)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.ErrorIs(t, err, errTransient)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, OpAccount, fe.Op)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, NumberTag(1), fe.Tag)
	assert.Contains(t, fe.Error(), addr.Hex())
}

func TestBackendPermanentErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewMockTransport(ctrl)
	b := NewBackend(tr, testOptions())

	addr := common.Address{1}
	tr.EXPECT().CodeAt(gomock.Any(), addr, Latest).
		Return(nil, errors.Wrap(ErrMalformedResponse, "eth_getCode"))

	_, err := b.CodeAt(context.Background(), addr, Latest)
	assert.True(t, IsFetchError(err))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	tag := HashTag(common.Hash{9})
	tr.EXPECT().ResolveBlock(gomock.Any(), tag).Return(uint64(0), errors.Wrap(ErrBlockNotFound, "x"))
	_, err = b.ResolveBlock(context.Background(), tag)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBackendResolveNumberIsLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := NewBackend(NewMockTransport(ctrl), testOptions())

	n, err := b.ResolveBlock(context.Background(), NumberTag(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
}

func TestBackendHead(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewMockTransport(ctrl)
	b := NewBackend(tr, testOptions())

	tr.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), errTransient)
	tr.EXPECT().BlockNumber(gomock.Any()).Return(uint64(100), nil)
	tr.EXPECT().ChainID(gomock.Any()).Return(big.NewInt(1), nil)

	n, err := b.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)

	id, err := b.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Int64())
}

func TestBackendCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewMockTransport(ctrl)
	b := NewBackend(tr, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	tr.EXPECT().BlockNumber(gomock.Any()).DoAndReturn(func(ctx context.Context) (uint64, error) {
		cancel()
		return 0, ctx.Err()
	})

	_, err := b.BlockNumber(ctx)
	assert.True(t, IsFetchError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackendRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewMockTransport(ctrl)
	opts := testOptions()
	opts.RequestsPerSecond = 1
	opts.Burst = 1
	b := NewBackend(tr, opts)

	tr.EXPECT().BlockNumber(gomock.Any()).Return(uint64(5), nil)
	n, err := b.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	// the bucket is empty, a caller with a short deadline gives up waiting
	// without reaching the transport
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = b.BlockNumber(ctx)
	assert.True(t, IsFetchError(err))
}

func TestOptionsDefaults(t *testing.T) {
	def := DefaultOptions()

	o := Options{}.withDefaults()
	assert.Equal(t, def.MaxRetries, o.MaxRetries)
	assert.Equal(t, def.RequestTimeout, o.RequestTimeout)
	assert.Equal(t, def.RetryInterval, o.RetryInterval)
	assert.Equal(t, def.MaxRetryInterval, o.MaxRetryInterval)
	assert.Equal(t, def.Burst, o.Burst)

	o = Options{DisableRetries: true, MaxRetries: 5, RetryInterval: time.Millisecond}.withDefaults()
	assert.Equal(t, 0, o.MaxRetries)
	assert.Equal(t, time.Millisecond, o.RetryInterval)

	o = Options{MaxRetries: -1, RequestTimeout: -1}.withDefaults()
	assert.Equal(t, def.MaxRetries, o.MaxRetries)
	assert.Negative(t, o.RequestTimeout)
}

func TestBackendZeroOptionsRetry(t *testing.T) {
	tr := NewMockTransport(gomock.NewController(t))
	b := NewBackend(tr, Options{RetryInterval: time.Millisecond})

	gomock.InOrder(
		tr.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), errTransient),
		tr.EXPECT().BlockNumber(gomock.Any()).DoAndReturn(func(ctx context.Context) (uint64, error) {
			// every attempt is bounded by the default timeout
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(DefaultOptions().RequestTimeout), deadline, time.Second)
			return 7, nil
		}),
	)

	n, err := b.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
}
