package zonetree

import (
	"strings"

	"github.com/miekg/dns"
)

// Tree maps zone names to a value and answers the question "which zone
// owns this name". Lookups walk the name label by label from the right, so
// the most specific enclosing zone wins. Not safe for concurrent mutation,
// callers register all zones during bring-up and only read afterwards.
type Tree[T any] struct {
	root treeNode[T]
}

type treeNode[T any] struct {
	value    *T
	children map[string]*treeNode[T]
}

// New creates an empty zone tree
func New[T any]() *Tree[T] {
	return &Tree[T]{}
}

// Insert registers value under the zone name. Inserting the same zone
// twice overwrites the previous value.
func (t *Tree[T]) Insert(zone string, value T) {
	node := &t.root

	for _, label := range labelsRightToLeft(zone) {
		if node.children == nil {
			node.children = map[string]*treeNode[T]{}
		}

		child, ok := node.children[label]
		if !ok {
			child = &treeNode[T]{}
			node.children[label] = child
		}

		node = child
	}

	node.value = &value
}

// Find returns the value of the most specific zone enclosing name. A name
// equal to a zone name is enclosed by it.
func (t *Tree[T]) Find(name string) (zone T, ok bool) {
	node := &t.root
	best := node.value

	for _, label := range labelsRightToLeft(name) {
		child, found := node.children[label]
		if !found {
			break
		}

		node = child

		if node.value != nil {
			best = node.value
		}
	}

	if best == nil {
		var zero T

		return zero, false
	}

	return *best, true
}

// Exact returns the value registered for exactly this zone name
func (t *Tree[T]) Exact(zone string) (value T, ok bool) {
	node := &t.root

	for _, label := range labelsRightToLeft(zone) {
		child, found := node.children[label]
		if !found {
			var zero T

			return zero, false
		}

		node = child
	}

	if node.value == nil {
		var zero T

		return zero, false
	}

	return *node.value, true
}

func labelsRightToLeft(name string) []string {
	fqdn := strings.ToLower(dns.Fqdn(name))
	if fqdn == "." {
		return nil
	}

	labels := dns.SplitDomainName(fqdn)

	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}

	return labels
}
