package domain

import (
	"fmt"
	"strings"
)

const maxConversationIDLen = 128

// ValidateUser rejects an empty identity.
func ValidateUser(userID UserID) error {
	if strings.TrimSpace(string(userID)) == "" {
		return ErrUnauthorized
	}
	return nil
}

// ValidateConversationID accepts non-empty ids up to 128 bytes without '/'.
// The same ids work as Mongo field values and Firestore document names.
func ValidateConversationID(id ConversationID) error {
	s := string(id)
	switch {
	case strings.TrimSpace(s) == "":
		return Invalid("conversationId", "Invalid request - conversationId required")
	case len(s) > maxConversationIDLen:
		return Invalid("conversationId", fmt.Sprintf("Invalid request - conversationId longer than %d characters", maxConversationIDLen))
	case strings.Contains(s, "/"):
		return Invalid("conversationId", "Invalid request - conversationId must not contain '/'")
	}
	return nil
}

// ValidateMessages checks roles only; an empty list is allowed.
func ValidateMessages(msgs []Message) error {
	for i, m := range msgs {
		if !m.Role.Valid() {
			return Invalid("messages", fmt.Sprintf("Invalid request - message %d has unknown role %q", i, m.Role))
		}
	}
	return nil
}
