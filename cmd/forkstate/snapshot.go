// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/vechain/forkstate/state"
)

func writeSnapshot(w io.Writer, dump state.Dump, compress bool) error {
	if !compress {
		return encodeSnapshot(w, dump)
	}
	sw := snappy.NewBufferedWriter(w)
	if err := encodeSnapshot(sw, dump); err != nil {
		return err
	}
	return errors.Wrap(sw.Close(), "flush snapshot")
}

func encodeSnapshot(w io.Writer, dump state.Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(dump), "encode snapshot")
}

func readSnapshot(r io.Reader, compressed bool) (state.Dump, error) {
	if compressed {
		r = snappy.NewReader(r)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var dump state.Dump
	if err := dec.Decode(&dump); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return dump, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	return f, errors.Wrap(err, "open snapshot")
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func createOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	return f, errors.Wrap(err, "create snapshot")
}
