// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import "context"

// snapshotBusy reads the current peer-transfer active set non-blockingly
// (SPEC_FULL.md §4.4, SNAPSHOT_BUSY). It is re-read per artist in the
// loop below, since a download that starts after this snapshot must still
// be able to block that artist.
func (c *Controller) snapshotBusy(ctx context.Context) error {
	active, err := c.peer.ActiveFiles(ctx)
	if err != nil {
		// ActiveFiles already fails closed per-artist via IsArtistBusy; here
		// we just keep the snapshot empty rather than failing the whole pass.
		c.busySnapshot = nil
		return nil
	}
	c.busySnapshot = active
	return nil
}
