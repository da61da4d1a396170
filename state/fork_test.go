// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vechain/forkstate/acc"
	"github.com/vechain/forkstate/co"
	"github.com/vechain/forkstate/remote"
)

const forkBlock = 100

var forkTag = remote.NumberTag(forkBlock)

func testRemoteOptions() remote.Options {
	return remote.Options{DisableRetries: true, RetryInterval: time.Millisecond}
}

func newForkState(t *testing.T) (*State, *remote.MockTransport) {
	tr := remote.NewMockTransport(gomock.NewController(t))
	s, err := New(context.Background(), Config{
		Mode:   ModeFork,
		Fork:   &ForkDescriptor{Transport: tr, Block: forkTag},
		Remote: testRemoteOptions(),
	})
	require.NoError(t, err)
	return s, tr
}

// remoteContract returns an account with code unique to the test, the
// remote code cache is process wide.
func remoteContract(t *testing.T) (*acc.Account, []byte) {
	code := []byte("code of " + t.Name())
	return &acc.Account{
		Nonce:       5,
		Balance:     uint256.NewInt(1000),
		CodeHash:    crypto.Keccak256Hash(code),
		StorageRoot: common.Hash{0xaa},
	}, code
}

func TestForkReadThrough(t *testing.T) {
	s, tr := newForkState(t)
	ctx := context.Background()

	addr := common.Address{1}
	slot := common.Hash{1}
	a, code := remoteContract(t)
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(a, nil).Times(1)
	tr.EXPECT().CodeAt(gomock.Any(), addr, forkTag).Return(code, nil).Times(1)
	tr.EXPECT().StorageAt(gomock.Any(), addr, slot, forkTag).Return(common.Hash{9}, nil).Times(1)

	for range 2 {
		got := mustAccount(t, s, addr)
		assert.Equal(t, uint64(5), got.Nonce)
		assert.Equal(t, uint64(len(code)), got.CodeSize)

		gotCode, err := s.GetCode(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, code, gotCode)

		size, err := s.GetCodeSize(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, len(code), size)

		assert.Equal(t, common.Hash{9}, mustStorage(t, s, addr, slot))
	}
	assert.Equal(t, forkTag, s.BlockTag())
	assert.Equal(t, ModeFork, s.Mode())

	// a remote hit modified by the caller does not change the cache
	got := mustAccount(t, s, addr)
	got.Nonce = 1
	assert.Equal(t, uint64(5), mustAccount(t, s, addr).Nonce)
}

func TestForkAbsentAccount(t *testing.T) {
	s, tr := newForkState(t)
	ctx := context.Background()

	addr := common.Address{1}
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(nil, nil).Times(1)

	exists, err := s.AccountExists(ctx, addr)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, mustAccount(t, s, addr))
	// absent accounts have no storage, nothing is fetched
	assert.Equal(t, common.Hash{}, mustStorage(t, s, addr, common.Hash{1}))
}

func TestForkLocalWritesShadowRemote(t *testing.T) {
	s, tr := newForkState(t)

	addr := common.Address{1}
	zeroed, reverted := common.Hash{1}, common.Hash{2}

	// a written zero is not fetched
	s.PutStorage(addr, zeroed, common.Hash{})
	assert.Equal(t, common.Hash{}, mustStorage(t, s, addr, zeroed))

	s.Checkpoint()
	s.PutStorage(addr, reverted, common.Hash{3})
	assert.Equal(t, common.Hash{3}, mustStorage(t, s, addr, reverted))
	require.NoError(t, s.Revert())

	tr.EXPECT().StorageAt(gomock.Any(), addr, reverted, forkTag).Return(common.Hash{7}, nil).Times(1)
	assert.Equal(t, common.Hash{7}, mustStorage(t, s, addr, reverted))

	require.NoError(t, s.PutAccount(addr, account(1, 1)))
	assert.Equal(t, uint64(1), mustAccount(t, s, addr).Nonce)
}

func TestForkBalanceRevert(t *testing.T) {
	s, tr := newForkState(t)

	addr := common.Address{1}
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(account(0, 100), nil).Times(1)

	assert.Equal(t, uint64(100), mustAccount(t, s, addr).Balance.Uint64())

	s.Checkpoint()
	require.NoError(t, s.PutAccount(addr, account(0, 150)))
	assert.Equal(t, uint64(150), mustAccount(t, s, addr).Balance.Uint64())
	require.NoError(t, s.Revert())

	// served from the origin cache again
	assert.Equal(t, uint64(100), mustAccount(t, s, addr).Balance.Uint64())
	assert.True(t, s.local.empty())
}

func TestForkDefaultOptionsRetry(t *testing.T) {
	tr := remote.NewMockTransport(gomock.NewController(t))
	s, err := New(context.Background(), Config{
		Mode: ModeFork,
		Fork: &ForkDescriptor{Transport: tr, Block: forkTag},
	})
	require.NoError(t, err)

	addr := common.Address{7}
	slot := common.Hash{1}
	gomock.InOrder(
		tr.EXPECT().StorageAt(gomock.Any(), addr, slot, forkTag).Return(common.Hash{}, errors.New("timeout")),
		tr.EXPECT().StorageAt(gomock.Any(), addr, slot, forkTag).Return(common.Hash{3}, nil),
	)

	assert.Equal(t, common.Hash{3}, mustStorage(t, s, addr, slot))
}

func TestForkSelfDestructHidesRemoteStorage(t *testing.T) {
	s, _ := newForkState(t)
	ctx := context.Background()

	addr := common.Address{1}
	s.Checkpoint()
	s.SelfDestruct(addr)
	s.PutStorage(addr, common.Hash{1}, common.Hash{1})
	assert.Equal(t, common.Hash{}, mustStorage(t, s, addr, common.Hash{2}))
	require.NoError(t, s.Commit())

	assert.Equal(t, common.Hash{1}, mustStorage(t, s, addr, common.Hash{1}))
	assert.Equal(t, common.Hash{}, mustStorage(t, s, addr, common.Hash{2}))
	exists, err := s.AccountExists(ctx, addr)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestForkResolvesBlockOnce(t *testing.T) {
	tr := remote.NewMockTransport(gomock.NewController(t))
	tr.EXPECT().ResolveBlock(gomock.Any(), remote.Latest).Return(uint64(123), nil).Times(1)

	s, err := New(context.Background(), Config{
		Mode:   ModeFork,
		Fork:   &ForkDescriptor{Transport: tr},
		Remote: testRemoteOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, remote.NumberTag(123), s.BlockTag())

	addr := common.Address{1}
	tr.EXPECT().Account(gomock.Any(), addr, remote.NumberTag(123)).Return(nil, nil).Times(1)
	for range 2 {
		assert.Nil(t, mustAccount(t, s, addr))
	}
}

func TestForkResolveFailure(t *testing.T) {
	tr := remote.NewMockTransport(gomock.NewController(t))
	tag := remote.HashTag(common.Hash{1})
	tr.EXPECT().ResolveBlock(gomock.Any(), tag).Return(uint64(0), errors.Wrap(remote.ErrBlockNotFound, "eth_getBlockByHash"))

	_, err := New(context.Background(), Config{
		Mode:   ModeFork,
		Fork:   &ForkDescriptor{Transport: tr, Block: tag},
		Remote: testRemoteOptions(),
	})
	require.Error(t, err)
	assert.True(t, remote.IsFetchError(err))
	assert.ErrorIs(t, err, remote.ErrBlockNotFound)
}

func TestForkFetchErrorLeavesStateUnchanged(t *testing.T) {
	s, tr := newForkState(t)
	ctx := context.Background()

	addr := common.Address{1}
	// failures are not cached, each call tries again
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(nil, errors.New("connection refused")).Times(2)

	_, err := s.GetAccount(ctx, addr)
	require.Error(t, err)
	assert.True(t, remote.IsFetchError(err))

	err = s.PutCode(ctx, addr, []byte{1})
	require.Error(t, err)
	assert.True(t, s.local.empty())
}

func TestForkCodeMismatch(t *testing.T) {
	s, tr := newForkState(t)

	addr := common.Address{1}
	a, _ := remoteContract(t)
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(a, nil)
	tr.EXPECT().CodeAt(gomock.Any(), addr, forkTag).Return([]byte("not the code"), nil)

	_, err := s.GetAccount(context.Background(), addr)
	assert.True(t, remote.IsImmutabilityError(err))
}

func TestShallowCopySharesRemoteCache(t *testing.T) {
	s, tr := newForkState(t)

	addr := common.Address{1}
	slot := common.Hash{1}
	a, code := remoteContract(t)
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(a, nil).Times(1)
	tr.EXPECT().CodeAt(gomock.Any(), addr, forkTag).Return(code, nil).Times(1)
	tr.EXPECT().StorageAt(gomock.Any(), addr, slot, forkTag).Return(common.Hash{9}, nil).Times(1)

	const n = 8
	copies := make([]*State, n)
	for i := range copies {
		cpy, err := s.ShallowCopy()
		require.NoError(t, err)
		copies[i] = cpy
	}

	var goes co.Goes
	errs := make([]error, n)
	for i, cpy := range copies {
		goes.Go(func() {
			ctx := context.Background()
			if _, err := cpy.GetCode(ctx, addr); err != nil {
				errs[i] = err
				return
			}
			v, err := cpy.GetStorage(ctx, addr, slot)
			if err == nil && v != (common.Hash{9}) {
				err = errors.Errorf("storage %v", v)
			}
			errs[i] = err

			// local writes stay local
			cpy.PutStorage(addr, slot, common.Hash{byte(i)})
		})
	}
	goes.Wait()
	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, common.Hash{byte(i)}, mustStorage(t, copies[i], addr, slot))
	}
	assert.Equal(t, common.Hash{9}, mustStorage(t, s, addr, slot))
}

func TestClearCaches(t *testing.T) {
	s, tr := newForkState(t)

	addr, written := common.Address{1}, common.Address{2}
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(nil, nil).Times(2)
	require.NoError(t, s.PutAccount(written, account(1, 1)))

	assert.Nil(t, mustAccount(t, s, addr))
	require.NoError(t, s.ClearCaches())
	assert.Nil(t, mustAccount(t, s, addr))
	assert.NotNil(t, mustAccount(t, s, written))

	s.Checkpoint()
	assert.True(t, IsJournalError(s.ClearCaches()))
}

func TestWarm(t *testing.T) {
	s, tr := newForkState(t)
	ctx := context.Background()

	addrs := []common.Address{{1}, {2}, {3}}
	for _, addr := range addrs {
		tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(account(1, 1), nil).Times(1)
	}
	slots := []common.Hash{{1}, {2}}
	for _, slot := range slots {
		tr.EXPECT().StorageAt(gomock.Any(), addrs[0], slot, forkTag).Return(slot, nil).Times(1)
	}

	require.NoError(t, s.Warm(ctx, addrs))
	require.NoError(t, s.WarmStorage(ctx, addrs[0], slots))

	// served from cache
	for _, addr := range addrs {
		assert.NotNil(t, mustAccount(t, s, addr))
	}
	for _, slot := range slots {
		assert.Equal(t, slot, mustStorage(t, s, addrs[0], slot))
	}

	// nothing to warm in normal mode
	require.NoError(t, newNormalState(t).Warm(ctx, addrs))
}

func TestWarmFailure(t *testing.T) {
	s, tr := newForkState(t)

	addr := common.Address{1}
	tr.EXPECT().Account(gomock.Any(), addr, forkTag).Return(nil, errors.New("connection refused"))

	err := s.Warm(context.Background(), []common.Address{addr})
	assert.True(t, remote.IsFetchError(err))
}
