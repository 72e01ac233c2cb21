package addrspace

import (
	"context"
	"time"
)

// NodeClass distinguishes containers from value-bearing nodes.
type NodeClass int

const (
	ClassObject NodeClass = iota
	ClassVariable
)

func (c NodeClass) String() string {
	if c == ClassVariable {
		return "variable"
	}
	return "object"
}

// DataValue is the result of reading a variable.
type DataValue struct {
	Value           any       `json:"value"`
	HasValue        bool      `json:"hasValue"`
	SourceTimestamp time.Time `json:"sourceTimestamp,omitzero"`
}

// ReadFunc produces the value of a data-source variable on every read.
type ReadFunc func(ctx context.Context, id string, dv *DataValue) error

// LookupFunc resolves an identifier against the node store.
type LookupFunc func(ctx context.Context, id string) (*Node, bool)

// LookupHook intercepts every node lookup. It must eventually delegate to next
// for the lookup to find anything.
type LookupHook func(ctx context.Context, id string, next LookupFunc) (*Node, bool)

// NodeSpec describes a node to add.
type NodeSpec struct {
	ID          string
	ParentID    string
	BrowseName  string
	DisplayName string
	Description string

	// Value is the static value of a variable.
	Value any
	// Source, when set, makes the variable a data source read on demand.
	Source ReadFunc
}

// Node is an entry in the address space.
type Node struct {
	ID          string
	ParentID    string
	Class       NodeClass
	BrowseName  string
	DisplayName string
	Description string
	Value       any

	source   ReadFunc
	children []string
}

// Children returns the identifiers of the node's children in insertion order.
func (n *Node) Children() []string {
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out
}

// IsDataSource reports whether the variable is backed by a ReadFunc.
func (n *Node) IsDataSource() bool {
	return n.source != nil
}
