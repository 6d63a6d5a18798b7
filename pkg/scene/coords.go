package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/psxscan/pkg/math"
)

// ErrInvalidHierarchy is returned for coordinate arrays whose parent links
// form a cycle or leave the array.
var ErrInvalidHierarchy = errors.New("invalid coordinate hierarchy")

// NoParent marks a root coordinate.
const NoParent = -1

// Coordinate is one node of a transform tree. Parent links are indices into
// the owning Hierarchy.
type Coordinate struct {
	ID       int
	ParentID int
	Local    math.Mat4
	Absolute bool // ignore ancestors
}

// Hierarchy is a flat coordinate array with memoized world matrices.
//
// The array must pass Validate before any world matrix is computed: the
// computation recurses up parent links and a cycle would never terminate.
type Hierarchy struct {
	nodes []Coordinate
	world []math.Mat4
	done  []bool

	validated bool
	err       error
	claimed   bool
}

// NewHierarchy takes ownership of nodes.
func NewHierarchy(nodes []Coordinate) *Hierarchy {
	return &Hierarchy{
		nodes: nodes,
		world: make([]math.Mat4, len(nodes)),
		done:  make([]bool, len(nodes)),
	}
}

// Len returns the number of coordinates.
func (h *Hierarchy) Len() int {
	return len(h.nodes)
}

// Node returns a copy of coordinate i.
func (h *Hierarchy) Node(i int) Coordinate {
	return h.nodes[i]
}

// Validate walks every node's parent chain. A chain that returns to its
// starting node, runs longer than the array, or points outside it rejects
// the whole array. The result is cached.
func (h *Hierarchy) Validate() error {
	if h.validated {
		return h.err
	}
	h.validated = true
	h.err = h.check()
	return h.err
}

func (h *Hierarchy) check() error {
	n := len(h.nodes)
	for i := range h.nodes {
		cur := h.nodes[i].ParentID
		for steps := 0; cur != NoParent; steps++ {
			if cur < 0 || cur >= n {
				return fmt.Errorf("%w: node %d has parent %d outside [0, %d)", ErrInvalidHierarchy, i, cur, n)
			}
			if cur == i || steps >= n {
				return fmt.Errorf("%w: node %d is part of a parent cycle", ErrInvalidHierarchy, i)
			}
			cur = h.nodes[cur].ParentID
		}
	}
	return nil
}

// HasCycle reports whether Validate rejects the array.
func (h *Hierarchy) HasCycle() bool {
	return h.Validate() != nil
}

// WorldMatrix returns the memoized world transform of node i. It returns an
// error without computing anything when the array is invalid.
func (h *Hierarchy) WorldMatrix(i int) (math.Mat4, error) {
	if err := h.Validate(); err != nil {
		return math.Identity(), err
	}
	if i < 0 || i >= len(h.nodes) {
		return math.Identity(), fmt.Errorf("%w: node %d outside [0, %d)", ErrInvalidHierarchy, i, len(h.nodes))
	}
	return h.resolve(i), nil
}

func (h *Hierarchy) resolve(i int) math.Mat4 {
	if h.done[i] {
		return h.world[i]
	}
	node := &h.nodes[i]
	m := node.Local
	if !node.Absolute {
		parent := math.Identity()
		if node.ParentID != NoParent {
			parent = h.resolve(node.ParentID)
		}
		m = parent.Mul(node.Local)
	}
	h.world[i] = m
	h.done[i] = true
	return m
}

// SetLocal replaces the local matrix of node i and drops every cached world
// matrix, since descendants depend on it.
func (h *Hierarchy) SetLocal(i int, m math.Mat4) {
	h.nodes[i].Local = m
	h.ResetCache()
}

// ResetCache forgets every memoized world matrix.
func (h *Hierarchy) ResetCache() {
	clear(h.done)
}

// Cached reports whether node i has a memoized world matrix.
func (h *Hierarchy) Cached(i int) bool {
	return h.done[i]
}

// Clone deep-copies the coordinates with fresh, empty caches. Validation is
// a property of the links, so a validated result carries over.
func (h *Hierarchy) Clone() *Hierarchy {
	nodes := make([]Coordinate, len(h.nodes))
	copy(nodes, h.nodes)
	c := NewHierarchy(nodes)
	c.validated, c.err = h.validated, h.err
	return c
}

// Claim returns h to its first caller and an independent clone to every
// later caller, so each posed scene instance has its own cache.
func (h *Hierarchy) Claim() *Hierarchy {
	if !h.claimed {
		h.claimed = true
		return h
	}
	return h.Clone()
}
