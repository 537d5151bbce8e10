package graphics

import (
	"cmp"
	"strings"
)

// Comparator orders sibling groups. It must be a strict total order: it
// returns 0 only for the same group.
type Comparator func(a, b *Group) int

// CompareByOrder orders by Order and then by creation.
func CompareByOrder(a, b *Group) int {
	if c := cmp.Compare(a.order, b.order); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// CompareByOrderThenLabel orders by Order, then by Label, then by creation.
func CompareByOrderThenLabel(a, b *Group) int {
	if c := cmp.Compare(a.order, b.order); c != 0 {
		return c
	}
	if c := strings.Compare(a.Label(), b.Label()); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}
