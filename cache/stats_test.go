// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsHitRate(t *testing.T) {
	var s Stats
	assert.Zero(t, s.HitRate())

	for range 3 {
		s.Hit()
	}
	s.Miss()
	assert.Equal(t, 0.75, s.HitRate())

	changed, hit, miss := s.Stats()
	assert.True(t, changed)
	assert.Equal(t, int64(3), hit)
	assert.Equal(t, int64(1), miss)

	// same rate, nothing to report
	s.Hit()
	s.Hit()
	s.Hit()
	s.Miss()
	changed, _, _ = s.Stats()
	assert.False(t, changed)

	s.Reset()
	changed, hit, miss = s.Stats()
	assert.False(t, changed)
	assert.Zero(t, hit+miss)
}

func TestStatsConcurrent(t *testing.T) {
	var (
		s  Stats
		wg sync.WaitGroup
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if i%2 == 0 {
					s.Hit()
				} else {
					s.Miss()
				}
			}
		}()
	}
	wg.Wait()

	_, hit, miss := s.Stats()
	assert.Equal(t, int64(400), hit)
	assert.Equal(t, int64(400), miss)
	assert.Equal(t, 0.5, s.HitRate())
}
