// Package graph turns the file references of an answer into a node/edge
// dataset and keeps the single network instance that displays it.
package graph

import (
	"sync"

	"github/itish2003/vaultchat/models"
)

type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
}

type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Dataset is what a network displays.
type Dataset struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build makes one node per file and chains consecutive files, so N files
// give N nodes and N-1 edges.
func Build(files []models.FileReference) Dataset {
	ds := Dataset{
		Nodes: make([]Node, 0, len(files)),
		Edges: make([]Edge, 0, max(len(files)-1, 0)),
	}
	for i, f := range files {
		ds.Nodes = append(ds.Nodes, Node{ID: i, Label: f.Name, Title: f.Path})
	}
	for i := 0; i < len(files)-1; i++ {
		ds.Edges = append(ds.Edges, Edge{From: i, To: i + 1})
	}
	return ds
}

// Network displays a dataset and accepts replacements of it.
type Network interface {
	SetData(Dataset)
}

// Factory creates the network on first use.
type Factory func(Dataset, Options) Network

// Renderer owns the network handle: the first Update creates it, later
// updates swap the dataset on the same instance.
type Renderer struct {
	mu      sync.Mutex
	factory Factory
	options Options
	network Network
}

func NewRenderer(factory Factory, options Options) *Renderer {
	return &Renderer{factory: factory, options: options}
}

// Update renders files and returns the dataset shown.
func (r *Renderer) Update(files []models.FileReference) Dataset {
	ds := Build(files)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.network == nil {
		r.network = r.factory(ds, r.options)
		return ds
	}
	r.network.SetData(ds)
	return ds
}

// Network returns the current instance, nil before the first Update.
func (r *Renderer) Network() Network {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.network
}
