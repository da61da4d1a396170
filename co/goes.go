// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"context"
	"sync"
)

// Goes to run and manage life-cycle of go routines.
type Goes struct {
	wg sync.WaitGroup
}

// Go run f in go routine.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait wait for all go routines started by 'Go' done.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done return the done channel for exiting of all go routines.
func (g *Goes) Done() chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.wg.Wait()
	}()
	return done
}

// ForEach calls work for each index in [0, n) with at most limit calls in
// flight, and returns the first error. Once an error occurs or ctx is done,
// remaining indexes are skipped and the context passed to work is canceled.
// A limit <= 0 means no limit.
func ForEach(ctx context.Context, n, limit int, work func(ctx context.Context, i int) error) error {
	if limit <= 0 || limit > n {
		limit = n
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		goes     Goes
		once     sync.Once
		firstErr error
		slots    = make(chan struct{}, limit)
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := range n {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		goes.Go(func() {
			defer func() { <-slots }()
			if err := work(ctx, i); err != nil {
				fail(err)
			}
		})
	}
	goes.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
