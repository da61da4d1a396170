// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/vechain/forkstate/metrics"

var (
	metricReadCount = metrics.LazyLoadCounterVec("state_read_count", []string{"kind", "source"})
	metricOpCount   = metrics.LazyLoadCounterVec("state_op_count", []string{"op"})
)

func countRead(kind, source string) {
	metricReadCount().AddWithLabel(1, map[string]string{"kind": kind, "source": source})
}

func countOp(op string) {
	metricOpCount().AddWithLabel(1, map[string]string{"op": op})
}
