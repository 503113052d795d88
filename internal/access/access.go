// Package access decides whether a principal may read or change conversation
// resources. Every check is a pure predicate: "not allowed" is a false result,
// never an error.
package access

import "github.com/vovakirdan/wiremsg/internal/store"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   store.Role
}

// IsAdmin reports whether p carries the admin role.
func IsAdmin(p Principal) bool {
	return p.Role == store.RoleAdmin
}

// CanAccessConversation reports whether p is one of the conversation's participants.
func CanAccessConversation(p Principal, conv *store.Conversation) bool {
	if conv == nil {
		return false
	}
	return conv.HasParticipant(p.UserID)
}

// CanReadMessage reports whether p may read msg, which must belong to conv.
func CanReadMessage(p Principal, msg *store.Message, conv *store.Conversation) bool {
	if msg == nil || conv == nil || msg.ConversationID != conv.ID {
		return false
	}
	return CanAccessConversation(p, conv)
}

// CanMutateMessage reports whether p may update or delete msg: only its sender,
// and only while still a participant.
func CanMutateMessage(p Principal, msg *store.Message, conv *store.Conversation) bool {
	if !CanReadMessage(p, msg, conv) {
		return false
	}
	return msg.SenderID == p.UserID
}

// RouteReply computes the receiver of a reply to parent sent by replierID. The
// replier must be one side of the parent's exchange; the result is the other
// side. A parent addressed to the whole conversation (no receiver) routes
// replies back to its sender, and the sender's own follow-up stays
// conversation-wide. ok is false when the replier is not part of the exchange.
func RouteReply(replierID int64, parent *store.Message) (receiver *int64, ok bool) {
	if parent == nil {
		return nil, false
	}
	if parent.ReceiverID == nil {
		if replierID == parent.SenderID {
			return nil, true
		}
		sender := parent.SenderID
		return &sender, true
	}

	switch replierID {
	case parent.SenderID:
		r := *parent.ReceiverID
		return &r, true
	case *parent.ReceiverID:
		s := parent.SenderID
		return &s, true
	default:
		return nil, false
	}
}
