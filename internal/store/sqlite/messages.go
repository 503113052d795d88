package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vovakirdan/wiremsg/internal/store"
)

const messageColumns = `id, conversation_id, sender_id, receiver_id, parent_id, body, sent_at, edited`

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var receiverID, parentID sql.NullInt64
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&receiverID,
		&parentID,
		&msg.Body,
		&msg.SentAt,
		&msg.Edited,
	)
	if err != nil {
		return nil, err
	}
	msg.ReceiverID = int64Ptr(receiverID)
	msg.ParentID = int64Ptr(parentID)
	return &msg, nil
}

func collectMessages(rows *sql.Rows) ([]*store.Message, error) {
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ==== Tx implementation ====

// GetMessage retrieves a message by ID.
func (r *queries) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`
	msg, err := scanMessage(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "message")
	}
	return msg, nil
}

// InsertMessage persists a message and sets its ID.
func (r *queries) InsertMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, parent_id, body, sent_at, edited)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		msg.ConversationID,
		msg.SenderID,
		nullInt64(msg.ReceiverID),
		nullInt64(msg.ParentID),
		msg.Body,
		utc(msg.SentAt),
		msg.Edited,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// InsertNotification persists a notification and sets its ID.
func (r *queries) InsertNotification(ctx context.Context, n *store.Notification) error {
	query := `
		INSERT INTO notifications (user_id, message_id, is_read, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query, n.UserID, n.MessageID, n.IsRead, utc(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// UpdateMessageBody is a compare-and-set on the message body.
func (r *queries) UpdateMessageBody(ctx context.Context, id int64, expected, body string) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE messages SET body = ?, edited = 1
		WHERE id = ? AND body = ?
	`, body, id, expected)
	if err != nil {
		return false, fmt.Errorf("update message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows == 1, nil
}

// InsertHistory appends a history entry and sets its ID.
func (r *queries) InsertHistory(ctx context.Context, h *store.MessageHistory) error {
	query := `
		INSERT INTO message_history (message_id, old_body, edited_by, edited_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query, h.MessageID, h.OldBody, h.EditedBy, utc(h.EditedAt))
	if err != nil {
		return fmt.Errorf("insert message history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	h.ID = id
	return nil
}

// DeleteMessage removes a message; replies, history and notifications cascade.
func (r *queries) DeleteMessage(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// ==== MessageStore implementation ====

func filterClause(conversationID int64, filter store.MessageFilter) (string, []any) {
	clauses := []string{"conversation_id = ?"}
	args := []any{conversationID}

	if filter.SenderID != nil {
		clauses = append(clauses, "sender_id = ?")
		args = append(args, *filter.SenderID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "sent_at >= ?")
		args = append(args, utc(*filter.Since))
	}
	if filter.Until != nil {
		clauses = append(clauses, "sent_at <= ?")
		args = append(args, utc(*filter.Until))
	}

	return strings.Join(clauses, " AND "), args
}

// ListMessages returns one page of a conversation's messages, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64, filter store.MessageFilter, limit, offset int) ([]*store.Message, error) {
	where, args := filterClause(conversationID, filter)
	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + where +
		` ORDER BY sent_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collectMessages(rows)
}

// CountMessages counts a conversation's messages matching filter.
func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID int64, filter store.MessageFilter) (int, error) {
	where, args := filterClause(conversationID, filter)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// ListThreadMessages returns every message visible to the user in one query.
func (s *SQLiteStore) ListThreadMessages(ctx context.Context, userID int64, conversationID *int64) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id, m.parent_id, m.body, m.sent_at, m.edited
		FROM messages m
		JOIN conversation_participants p ON p.conversation_id = m.conversation_id AND p.user_id = ?
	`
	args := []any{userID}
	if conversationID != nil {
		query += ` WHERE m.conversation_id = ?`
		args = append(args, *conversationID)
	}
	query += ` ORDER BY m.sent_at DESC, m.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query thread messages: %w", err)
	}
	return collectMessages(rows)
}

// ListHistory returns a message's edit history, newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, messageID int64) ([]*store.MessageHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, old_body, edited_by, edited_at
		FROM message_history
		WHERE message_id = ?
		ORDER BY edited_at DESC, id DESC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("query message history: %w", err)
	}
	defer rows.Close()

	entries := make([]*store.MessageHistory, 0)
	for rows.Next() {
		var h store.MessageHistory
		if err := rows.Scan(&h.ID, &h.MessageID, &h.OldBody, &h.EditedBy, &h.EditedAt); err != nil {
			return nil, fmt.Errorf("scan message history: %w", err)
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

// ==== NotificationStore implementation ====

// ListNotifications lists a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]*store.Notification, error) {
	query := `
		SELECT id, user_id, message_id, is_read, created_at
		FROM notifications
		WHERE user_id = ?
	`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*store.Notification, 0)
	for rows.Next() {
		var n store.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MessageID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a notification owned by userID as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification %d: %w", id, store.ErrNotFound)
	}
	return nil
}
