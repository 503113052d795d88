// Package thread assembles flat message lists into reply trees.
package thread

import (
	"sort"

	"github.com/vovakirdan/wiremsg/internal/store"
)

// Node is one message and its direct replies, most recent first.
type Node struct {
	Message *store.Message
	Replies []*Node
}

// Forest is an ordered list of root nodes, most recent first.
type Forest []*Node

// Size returns the number of nodes in the forest.
func (f Forest) Size() int {
	n := 0
	for _, node := range f {
		n += node.size()
	}
	return n
}

func (n *Node) size() int {
	total := 1
	for _, r := range n.Replies {
		total += r.size()
	}
	return total
}

// Build turns messages into a forest in O(N log N) without further lookups.
// Messages without a parent are roots; so is any message whose parent is not
// in the input. Each message appears at most once, so a malformed cycle in the
// input cannot recurse forever: members of a cycle with no root are dropped.
func Build(messages []*store.Message) Forest {
	nodes := make(map[int64]*Node, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if _, dup := nodes[msg.ID]; dup {
			continue
		}
		nodes[msg.ID] = &Node{Message: msg}
	}

	children := make(map[int64][]*Node, len(nodes))
	var roots []*Node
	for _, node := range nodes {
		parentID := node.Message.ParentID
		if parentID == nil {
			roots = append(roots, node)
			continue
		}
		if _, ok := nodes[*parentID]; !ok {
			roots = append(roots, node)
			continue
		}
		children[*parentID] = append(children[*parentID], node)
	}

	visited := make(map[int64]bool, len(nodes))
	for _, root := range roots {
		attach(root, children, visited)
	}

	sortNewestFirst(roots)
	return Forest(roots)
}

func attach(node *Node, children map[int64][]*Node, visited map[int64]bool) {
	if visited[node.Message.ID] {
		return
	}
	visited[node.Message.ID] = true

	for _, child := range children[node.Message.ID] {
		if visited[child.Message.ID] {
			continue
		}
		attach(child, children, visited)
		node.Replies = append(node.Replies, child)
	}
	sortNewestFirst(node.Replies)
}

func sortNewestFirst(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].Message, nodes[j].Message
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.After(b.SentAt)
		}
		return a.ID > b.ID
	})
}
