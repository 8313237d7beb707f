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

import "testing"

func TestTabuList_ForbidAndExpire(t *testing.T) {
	l := newTabuList()
	m := NewMove(2, 7)

	l.Add(m, 10)

	if !l.Forbidden(m, 5) {
		t.Error("move should be forbidden before expiry")
	}
	if !l.Forbidden(m, 9) {
		t.Error("move should be forbidden at iteration 9")
	}
	if l.Forbidden(m, 10) {
		t.Error("move should be admissible at its expiry iteration")
	}
	if l.Forbidden(NewMove(1, 3), 5) {
		t.Error("unlisted move reported forbidden")
	}
}

func TestTabuList_PurgeBoundsSize(t *testing.T) {
	const tenure = 16
	l := newTabuList()

	// One entry per iteration, purged at each boundary like the engine
	// does: the live size must never exceed the tenure window.
	for iter := 1; iter <= 200; iter++ {
		l.Purge(iter)
		l.Add(NewMove(iter%32, 32+iter%32), iter+tenure)
		if l.Len() > tenure {
			t.Fatalf("iteration %d: tabu size %d exceeds tenure %d", iter, l.Len(), tenure)
		}
	}
}

func TestTabuList_ReAddExtends(t *testing.T) {
	l := newTabuList()
	m := NewMove(0, 1)

	l.Add(m, 5)
	l.Add(m, 12)

	if l.Forbidden(m, 12) {
		t.Error("move should expire at the extended iteration")
	}
	if !l.Forbidden(m, 11) {
		t.Error("re-adding must extend the expiry")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}
