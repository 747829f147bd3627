package blueprint

import (
	"sort"

	"github.com/nebari-dev/refstore/internal/models"
)

// ChangeKind classifies one block between two snapshots.
type ChangeKind string

const (
	Added     ChangeKind = "added"
	Removed   ChangeKind = "removed"
	Changed   ChangeKind = "changed"
	Unchanged ChangeKind = "unchanged"
)

// Change describes one block id present in either snapshot. From and To are
// zero when the block is absent on that side.
type Change struct {
	BlockID string     `json:"block_id"`
	Kind    ChangeKind `json:"kind"`
	From    int        `json:"from_version,omitempty"`
	To      int        `json:"to_version,omitempty"`
}

// Diff classifies the union of block ids of two snapshots. Only the maps are
// consulted, so blocks deleted after either snapshot still diff correctly.
// Changes are sorted by block id.
func Diff(from, to models.Snapshot) []Change {
	changes := make([]Change, 0, len(from)+len(to))

	for id, f := range from {
		t, ok := to[id]
		switch {
		case !ok:
			changes = append(changes, Change{BlockID: id, Kind: Removed, From: f})
		case f != t:
			changes = append(changes, Change{BlockID: id, Kind: Changed, From: f, To: t})
		default:
			changes = append(changes, Change{BlockID: id, Kind: Unchanged, From: f, To: t})
		}
	}
	for id, t := range to {
		if _, ok := from[id]; !ok {
			changes = append(changes, Change{BlockID: id, Kind: Added, To: t})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].BlockID < changes[j].BlockID })
	return changes
}
