// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "testing"

func TestWaitForShutdown(t *testing.T) {
	ctx := WaitForShutdown()
	if ctx == nil {
		t.Fatal("WaitForShutdown() returned nil context")
	}

	select {
	case <-ctx.Done():
		t.Error("context should not be done immediately")
	default:
	}
}
