package sqlite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vovakirdan/wiremsg/internal/store"
)

// ==== ConversationStore implementation ====

// CreateConversation creates a conversation and its participant rows atomically.
func (s *SQLiteStore) CreateConversation(ctx context.Context, participants []int64, createdAt time.Time) (*store.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO conversations (created_at) VALUES (?)`, utc(createdAt))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	memberQuery := `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES (?, ?)
	`
	for _, userID := range participants {
		if _, err := tx.ExecContext(ctx, memberQuery, id, userID); err != nil {
			return nil, fmt.Errorf("add participant %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetConversation(ctx, id)
}

// GetConversation retrieves a conversation with its participants.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*store.Conversation, error) {
	var conv store.Conversation
	err := s.db.QueryRowContext(ctx, `SELECT id, created_at FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return nil, notFound(err, "conversation")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY user_id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		conv.Participants = append(conv.Participants, userID)
	}

	return &conv, rows.Err()
}

// ListConversations lists conversations the user participates in, newest first.
// Participants of all conversations are loaded with a single query.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]*store.Conversation, error) {
	query := `
		SELECT c.id, c.created_at, p.user_id
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE c.id IN (
			SELECT conversation_id FROM conversation_participants WHERE user_id = ?
		)
		ORDER BY c.id ASC, p.user_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*store.Conversation)
	for rows.Next() {
		var id, participant int64
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt, &participant); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv, ok := byID[id]
		if !ok {
			conv = &store.Conversation{ID: id, CreatedAt: createdAt}
			byID[id] = conv
		}
		conv.Participants = append(conv.Participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conversations := make([]*store.Conversation, 0, len(byID))
	for _, conv := range byID {
		conversations = append(conversations, conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	return conversations, nil
}
