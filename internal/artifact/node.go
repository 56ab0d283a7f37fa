package artifact

import (
	"encoding/json"
	"time"
)

// NodeType tags a node's payload. THREAD and MESSAGE nodes are created by the
// external UI; SQA_REPORT and STEP_PROGRESS children are owned by this service.
type NodeType string

const (
	NodeThread   NodeType = "THREAD"
	NodeMessage  NodeType = "MESSAGE"
	NodeReport   NodeType = "SQA_REPORT"
	NodeProgress NodeType = "STEP_PROGRESS"
)

// Payload is a node's typed payload envelope.
type Payload struct {
	Type NodeType        `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Node is one node of the thread artifact tree.
type Node struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Data      Payload   `json:"data"`
	Children  []*Node   `json:"children"`
}

// Clone returns a deep copy of the node and everything below it. Mutation is
// always performed on a clone so readers holding the previous tree snapshot
// are never affected.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Data.Data != nil {
		out.Data.Data = append(json.RawMessage(nil), n.Data.Data...)
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return &out
}

// FindChild returns the direct child with the given id, or nil.
func (n *Node) FindChild(id string) *Node {
	for _, child := range n.Children {
		if child.ID == id {
			return child
		}
	}
	return nil
}
