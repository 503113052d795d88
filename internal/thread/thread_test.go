package thread

import (
	"testing"
	"time"

	"github.com/vovakirdan/wiremsg/internal/store"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func msg(id int64, parent int64, offset time.Duration) *store.Message {
	m := &store.Message{ID: id, ConversationID: 1, SenderID: 1, SentAt: base.Add(offset)}
	if parent != 0 {
		m.ParentID = &parent
	}
	return m
}

func ids(nodes []*Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Message.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildOrdersRepliesNewestFirst(t *testing.T) {
	forest := Build([]*store.Message{
		msg(1, 0, 0),
		msg(2, 1, time.Minute),
		msg(3, 1, 3*time.Minute),
		msg(4, 2, 2*time.Minute),
		msg(5, 0, 5*time.Minute),
	})

	if got := ids(forest); !equalIDs(got, []int64{5, 1}) {
		t.Fatalf("expected roots [5 1], got %v", got)
	}

	root := forest[1]
	if got := ids(root.Replies); !equalIDs(got, []int64{3, 2}) {
		t.Fatalf("expected replies [3 2], got %v", got)
	}
	if got := ids(root.Replies[1].Replies); !equalIDs(got, []int64{4}) {
		t.Fatalf("expected nested reply [4], got %v", got)
	}
	if forest.Size() != 5 {
		t.Errorf("expected 5 nodes, got %d", forest.Size())
	}
}

func TestBuildTieBreaksByID(t *testing.T) {
	forest := Build([]*store.Message{msg(1, 0, 0), msg(2, 0, 0)})
	if got := ids(forest); !equalIDs(got, []int64{2, 1}) {
		t.Fatalf("expected [2 1], got %v", got)
	}
}

func TestBuildTreatsOrphansAsRoots(t *testing.T) {
	forest := Build([]*store.Message{msg(7, 99, time.Minute), msg(8, 7, 2*time.Minute)})
	if got := ids(forest); !equalIDs(got, []int64{7}) {
		t.Fatalf("expected orphan 7 as root, got %v", got)
	}
	if got := ids(forest[0].Replies); !equalIDs(got, []int64{8}) {
		t.Fatalf("expected reply 8 under orphan, got %v", got)
	}
}

func TestBuildTerminatesOnCycles(t *testing.T) {
	a := msg(1, 2, 0)
	b := msg(2, 1, time.Minute)
	forest := Build([]*store.Message{a, b, msg(3, 0, 0)})

	if got := ids(forest); !equalIDs(got, []int64{3}) {
		t.Fatalf("expected only the real root, got %v", got)
	}
}

func TestBuildIgnoresDuplicates(t *testing.T) {
	m := msg(1, 0, 0)
	forest := Build([]*store.Message{m, m, nil})
	if forest.Size() != 1 {
		t.Fatalf("expected 1 node, got %d", forest.Size())
	}
}

func TestBuildEmpty(t *testing.T) {
	if forest := Build(nil); len(forest) != 0 {
		t.Fatalf("expected empty forest, got %d roots", len(forest))
	}
}
