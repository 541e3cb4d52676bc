package reconciler

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Changes is the outcome of diffing desired resource names against actual
// ones. The three slices are pairwise disjoint.
type Changes struct {
	ToAdd    []string
	ToDelete []string
	ToUpdate []string
}

// Diff computes the operations that move actual toward desired. Membership
// is set-based; deletions keep actual's order, additions and updates keep
// desired's order.
func Diff(desired, actual []string) Changes {
	desiredSet := mapset.NewThreadUnsafeSet(desired...)
	actualSet := mapset.NewThreadUnsafeSet(actual...)

	var changes Changes
	for _, name := range actual {
		if !desiredSet.Contains(name) {
			changes.ToDelete = append(changes.ToDelete, name)
		}
	}
	for _, name := range desired {
		if actualSet.Contains(name) {
			changes.ToUpdate = append(changes.ToUpdate, name)
		} else {
			changes.ToAdd = append(changes.ToAdd, name)
		}
	}
	return changes
}
