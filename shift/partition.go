// Package shift tests every alignment site for a shift of the
// substitution rate between foreground and background branches. A
// one-rate and a two-rate model are fitted for every site and
// compared with a likelihood ratio test.
package shift

import (
	"sort"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("shift")

// BranchPartition splits branch ids into foreground and background.
// Both slices are sorted, they are disjoint and together contain all
// the tree branches.
type BranchPartition struct {
	Foreground []int
	Background []int
}

// Partition splits all the branch ids into the foreground and the
// background. Duplicated foreground ids are collapsed.
func Partition(all []int, foreground []int) (BranchPartition, error) {
	if len(foreground) == 0 {
		return BranchPartition{}, &InvalidPartitionError{Reason: "no foreground branches"}
	}
	known := make(map[int]bool, len(all))
	for _, id := range all {
		known[id] = true
	}
	fg := make(map[int]bool, len(foreground))
	var unknown []int
	for _, id := range foreground {
		if !known[id] {
			unknown = append(unknown, id)
			continue
		}
		fg[id] = true
	}
	if len(unknown) > 0 {
		sort.Ints(unknown)
		return BranchPartition{}, &InvalidPartitionError{IDs: unknown, Reason: "unknown foreground branch ids"}
	}

	var part BranchPartition
	for _, id := range all {
		if fg[id] {
			part.Foreground = append(part.Foreground, id)
		} else {
			part.Background = append(part.Background, id)
		}
	}
	if len(part.Background) == 0 {
		return BranchPartition{}, &InvalidPartitionError{Reason: "all branches are foreground"}
	}
	sort.Ints(part.Foreground)
	sort.Ints(part.Background)
	return part, nil
}

// check verifies that the partition covers exactly the branches in all
// and that the two sets are disjoint.
func (p BranchPartition) check(all []int) error {
	if len(p.Foreground) == 0 {
		return &InvalidPartitionError{Reason: "no foreground branches"}
	}
	if len(p.Background) == 0 {
		return &InvalidPartitionError{Reason: "no background branches"}
	}
	known := make(map[int]bool, len(all))
	for _, id := range all {
		known[id] = true
	}
	seen := make(map[int]bool, len(all))
	var unknown, repeated []int
	for _, set := range [][]int{p.Foreground, p.Background} {
		for _, id := range set {
			switch {
			case !known[id]:
				unknown = append(unknown, id)
			case seen[id]:
				repeated = append(repeated, id)
			}
			seen[id] = true
		}
	}
	if len(unknown) > 0 {
		sort.Ints(unknown)
		return &InvalidPartitionError{IDs: unknown, Reason: "branches are not in the tree"}
	}
	if len(repeated) > 0 {
		sort.Ints(repeated)
		return &InvalidPartitionError{IDs: repeated, Reason: "branches appear more than once"}
	}
	var missing []int
	for _, id := range all {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return &InvalidPartitionError{IDs: missing, Reason: "branches are neither foreground nor background"}
	}
	return nil
}
