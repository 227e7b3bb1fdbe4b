package graph

type Font struct {
	Size int `json:"size"`
}

type NodeOptions struct {
	Shape       string `json:"shape"`
	Size        int    `json:"size"`
	Font        Font   `json:"font"`
	BorderWidth int    `json:"borderWidth"`
	Shadow      bool   `json:"shadow"`
}

type EdgeOptions struct {
	Width  int  `json:"width"`
	Shadow bool `json:"shadow"`
}

type PhysicsOptions struct {
	Stabilization bool `json:"stabilization"`
}

// Options mirrors the display options of the browser network library.
type Options struct {
	Nodes   NodeOptions    `json:"nodes"`
	Edges   EdgeOptions    `json:"edges"`
	Physics PhysicsOptions `json:"physics"`
}

// DefaultOptions draws shadowed dots with force layout but no stabilization pass.
func DefaultOptions() Options {
	return Options{
		Nodes: NodeOptions{
			Shape:       "dot",
			Size:        16,
			Font:        Font{Size: 12},
			BorderWidth: 2,
			Shadow:      true,
		},
		Edges:   EdgeOptions{Width: 1, Shadow: true},
		Physics: PhysicsOptions{Stabilization: false},
	}
}
