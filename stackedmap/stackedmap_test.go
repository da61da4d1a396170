// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/forkstate/stackedmap"
)

func M(a ...interface{}) []interface{} {
	return a
}

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	sm := stackedmap.New()

	tests := []struct {
		f         func()
		depth     int
		putKey    string
		putValue  string
		getKey    string
		getReturn []interface{}
	}{
		{func() {}, 0, "", "", "foo", []interface{}{nil, false}},
		{func() { sm.Push() }, 1, "foo", "bar", "foo", []interface{}{"bar", true}},
		{func() { sm.Push() }, 2, "foo", "baz", "foo", []interface{}{"baz", true}},
		{func() {}, 2, "foo", "baz1", "foo", []interface{}{"baz1", true}},
		{func() { sm.Push() }, 3, "foo", "qux", "foo", []interface{}{"qux", true}},
		{func() { sm.Revert() }, 2, "", "", "foo", []interface{}{"baz1", true}},
		{func() { sm.Revert() }, 1, "", "", "foo", []interface{}{"bar", true}},
		{func() { sm.Revert() }, 0, "", "", "foo", []interface{}{nil, false}},

		{func() { sm.Push(); sm.Push() }, 2, "", "", "", nil},
		{func() { sm.PopTo(0) }, 0, "", "", "", nil},
	}

	for _, test := range tests {
		test.f()
		assert.Equal(test.depth, sm.Depth())
		if test.putKey != "" {
			sm.Put(test.putKey, test.putValue)
		}
		if test.getKey != "" {
			assert.Equal(test.getReturn, M(sm.Get(test.getKey)))
		}
	}
}

func TestStackedMapCommit(t *testing.T) {
	sm := stackedmap.New()

	assert.Equal(t, 0, sm.Push())
	sm.Put("a", 1)

	assert.Equal(t, 1, sm.Push())
	sm.Put("a", 2)
	sm.Put("b", 3)

	// committed values become visible at the lower level
	assert.Nil(t, sm.Commit())
	assert.Equal(t, 1, sm.Depth())
	assert.Equal(t, M(2, true), M(sm.Get("a")))
	assert.Equal(t, M(3, true), M(sm.Get("b")))

	// and remain revertible there
	sm.Push()
	sm.Put("b", 4)
	assert.Nil(t, sm.Commit())
	assert.Equal(t, M(4, true), M(sm.Get("b")))

	journal := sm.Commit()
	assert.Equal(t, 0, sm.Depth())
	assert.Equal(t, M(nil, false), M(sm.Get("a")))
	assert.Equal(t, M(nil, false), M(sm.Get("b")))

	var got []interface{}
	for _, e := range journal {
		got = append(got, e.Key, e.Value)
	}
	assert.Equal(t, []interface{}{"a", 1, "a", 2, "b", 3, "b", 4}, got)
}

func TestStackedMapCommitThenRevert(t *testing.T) {
	sm := stackedmap.New()
	sm.Push()
	sm.Put("a", "base")

	sm.Push()
	sm.Push()
	sm.Put("a", "inner")
	sm.Commit()
	assert.Equal(t, M("inner", true), M(sm.Get("a")))

	// reverting the caller frame discards the committed inner writes
	sm.Revert()
	assert.Equal(t, M("base", true), M(sm.Get("a")))
}

func TestStackedMapRepeatedPuts(t *testing.T) {
	sm := stackedmap.New()
	sm.Push()
	sm.Push()
	sm.Put("k", 1)
	sm.Put("k", 2)
	sm.Put("k", 3)
	sm.Revert()
	assert.Equal(t, M(nil, false), M(sm.Get("k")))

	sm.Put("k", 0)
	assert.Equal(t, M(0, true), M(sm.Get("k")))
}

func TestStackedMapJournal(t *testing.T) {
	assert := assert.New(t)
	sm := stackedmap.New()

	kvs := []struct {
		k, v string
	}{
		{"a", "b"},
		{"a", "b"},
		{"a1", "b1"},
		{"a2", "b2"},
		{"a3", "b3"},
		{"a4", "b4"},
	}

	for _, kv := range kvs {
		sm.Push()
		sm.Put(kv.k, kv.v)
	}
	i := 0
	sm.Journal(func(k, v interface{}) bool {
		assert.Equal(kvs[i].k, k)
		assert.Equal(kvs[i].v, v)
		i++
		return true
	})
	assert.Equal(len(kvs), i, "Journal should traverse all")

	i = 0
	sm.Journal(func(k, v interface{}) bool {
		i++
		return false
	})
	assert.Equal(1, i, "Journal traverse should abort")
}

func TestStackedMapPanicsOnEmpty(t *testing.T) {
	sm := stackedmap.New()
	assert.Panics(t, func() { sm.Put("a", 1) })
	assert.Panics(t, func() { sm.Commit() })
	assert.Panics(t, func() { sm.Revert() })
}
