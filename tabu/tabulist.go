// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabu

// tabuList maps forbidden moves to the iteration at which they become
// admissible again. One entry is added per iteration and entries live for
// the tenure window, so after the engine's per-iteration Purge the size
// never exceeds the tenure.
type tabuList struct {
	expiry map[Move]int
}

func newTabuList() *tabuList {
	return &tabuList{expiry: make(map[Move]int)}
}

// Add forbids m until iteration until (exclusive).
func (l *tabuList) Add(m Move, until int) {
	l.expiry[m] = until
}

// Forbidden reports whether m is tabu at iteration iter. The aspiration
// override is the caller's decision; this is pure bookkeeping.
func (l *tabuList) Forbidden(m Move, iter int) bool {
	until, ok := l.expiry[m]
	return ok && iter < until
}

// Purge drops entries that have expired by iteration iter.
func (l *tabuList) Purge(iter int) {
	for m, until := range l.expiry {
		if iter >= until {
			delete(l.expiry, m)
		}
	}
}

// Len is the number of live entries.
func (l *tabuList) Len() int {
	return len(l.expiry)
}
