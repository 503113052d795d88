package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned (wrapped) when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned (wrapped) when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// Role is a user's privilege level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Conversation is a set of participants that owns messages.
type Conversation struct {
	ID           int64
	Participants []int64 // sorted ascending
	CreatedAt    time.Time
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID int64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Message represents a persisted chat message.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	ReceiverID     *int64 // nil when addressed to the whole conversation
	ParentID       *int64 // nil for root messages
	Body           string
	SentAt         time.Time
	Edited         bool
}

// MessageHistory is an immutable snapshot of a message body before an edit.
type MessageHistory struct {
	ID        int64
	MessageID int64
	OldBody   string
	EditedBy  int64
	EditedAt  time.Time
}

// Notification tells a user about a message addressed to them.
type Notification struct {
	ID        int64
	UserID    int64
	MessageID int64
	IsRead    bool
	CreatedAt time.Time
}

// MessageFilter narrows message listings. Zero values mean no constraint.
type MessageFilter struct {
	SenderID *int64
	Since    *time.Time
	Until    *time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches for users by username.
	SearchUsers(ctx context.Context, query string) ([]*User, error)

	// ListUsers lists all users ordered by ID.
	ListUsers(ctx context.Context) ([]*User, error)

	// MissingUsers returns the subset of ids that do not exist.
	MissingUsers(ctx context.Context, ids []int64) ([]int64, error)

	// UpdateUserRole changes a user's role.
	UpdateUserRole(ctx context.Context, id int64, role Role) error

	// DeleteUser removes a user together with their messages, notifications and
	// any conversation left with fewer than two participants.
	DeleteUser(ctx context.Context, id int64) error
}

// ConversationStore handles conversation persistence.
type ConversationStore interface {
	// CreateConversation creates a conversation and its participant rows atomically.
	CreateConversation(ctx context.Context, participants []int64, createdAt time.Time) (*Conversation, error)

	// GetConversation retrieves a conversation with its participants.
	GetConversation(ctx context.Context, id int64) (*Conversation, error)

	// ListConversations lists conversations the user participates in, newest first.
	ListConversations(ctx context.Context, userID int64) ([]*Conversation, error)
}

// MessageStore handles message reads.
type MessageStore interface {
	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages returns one page of a conversation's messages, newest first.
	ListMessages(ctx context.Context, conversationID int64, filter MessageFilter, limit, offset int) ([]*Message, error)

	// CountMessages counts a conversation's messages matching filter.
	CountMessages(ctx context.Context, conversationID int64, filter MessageFilter) (int, error)

	// ListThreadMessages returns every message of every conversation the user
	// participates in (optionally a single conversation) in one query.
	ListThreadMessages(ctx context.Context, userID int64, conversationID *int64) ([]*Message, error)

	// ListHistory returns a message's edit history, newest first.
	ListHistory(ctx context.Context, messageID int64) ([]*MessageHistory, error)
}

// NotificationStore handles notification reads and acknowledgement.
type NotificationStore interface {
	// ListNotifications lists a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]*Notification, error)

	// MarkNotificationRead marks a notification owned by userID as read.
	MarkNotificationRead(ctx context.Context, id, userID int64) error
}

// Tx exposes the writes that must commit together. It is only valid inside WithTx.
type Tx interface {
	GetMessage(ctx context.Context, id int64) (*Message, error)
	InsertMessage(ctx context.Context, msg *Message) error
	InsertNotification(ctx context.Context, n *Notification) error
	// UpdateMessageBody sets body and marks the message edited only if the stored
	// body still equals expected. It reports whether the row was updated.
	UpdateMessageBody(ctx context.Context, id int64, expected, body string) (bool, error)
	InsertHistory(ctx context.Context, h *MessageHistory) error
	DeleteMessage(ctx context.Context, id int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
	NotificationStore

	// WithTx runs fn in a write transaction; fn's error rolls it back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close closes the underlying database connection.
	Close() error
}
