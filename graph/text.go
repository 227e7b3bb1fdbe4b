package graph

import (
	"fmt"
	"io"
	"strings"
)

// TextNetwork prints the chain of labels, one line per dataset.
type TextNetwork struct {
	w io.Writer
}

// NewTextFactory returns a Factory drawing to w.
func NewTextFactory(w io.Writer) Factory {
	return func(ds Dataset, _ Options) Network {
		n := &TextNetwork{w: w}
		n.SetData(ds)
		return n
	}
}

func (n *TextNetwork) SetData(ds Dataset) {
	fmt.Fprintln(n.w, Chain(ds))
}

// Chain renders the dataset as "a -> b -> c" following its edges from node 0.
func Chain(ds Dataset) string {
	if len(ds.Nodes) == 0 {
		return ""
	}
	labels := make(map[int]string, len(ds.Nodes))
	for _, node := range ds.Nodes {
		labels[node.ID] = node.Label
	}
	next := make(map[int]int, len(ds.Edges))
	for _, e := range ds.Edges {
		next[e.From] = e.To
	}
	parts := []string{labels[ds.Nodes[0].ID]}
	seen := map[int]bool{ds.Nodes[0].ID: true}
	for cur := ds.Nodes[0].ID; ; {
		to, ok := next[cur]
		if !ok || seen[to] {
			break
		}
		seen[to] = true
		parts = append(parts, labels[to])
		cur = to
	}
	return strings.Join(parts, " -> ")
}
