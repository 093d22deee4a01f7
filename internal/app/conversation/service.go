package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/PabloGalante/ask-michael/internal/domain"
	"github.com/PabloGalante/ask-michael/internal/observability"
)

// Service manages a user's conversations: the sidebar list, message history
// and metadata edits.
type Service struct {
	store domain.ConversationStore
	newID func() string
}

func NewService(store domain.ConversationStore) *Service {
	return &Service{
		store: store,
		newID: uuid.NewString,
	}
}

// Start creates an empty conversation with default metadata and returns its id.
func (s *Service) Start(ctx context.Context, userID domain.UserID) (domain.ConversationID, error) {
	if err := domain.ValidateUser(userID); err != nil {
		return "", err
	}

	id := domain.ConversationID(s.newID())
	log := observability.LoggerFromContext(ctx).With(
		"user_id", userID,
		"conversation_id", id,
	)

	if _, _, err := s.store.Create(ctx, domain.CreateInput{ID: id, UserID: userID}); err != nil {
		log.Error("failed to create conversation", "error", err)
		return "", err
	}

	log.Info("conversation created")
	return id, nil
}

// List returns the user's conversations, pinned first.
func (s *Service) List(ctx context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	if err := domain.ValidateUser(userID); err != nil {
		return nil, err
	}

	convs, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to list conversations", "user_id", userID, "error", err)
		return nil, err
	}
	return convs, nil
}

// Messages returns the history of one conversation. A conversation that does
// not exist yet has no messages.
func (s *Service) Messages(ctx context.Context, userID domain.UserID, id domain.ConversationID) ([]domain.Message, error) {
	if err := domain.ValidateUser(userID); err != nil {
		return nil, err
	}
	if err := domain.ValidateConversationID(id); err != nil {
		return nil, err
	}

	conv, err := s.store.Get(ctx, id, userID)
	switch {
	case err == nil:
		return conv.Messages, nil
	case errors.Is(err, domain.ErrNotFound):
		return []domain.Message{}, nil
	default:
		observability.LoggerFromContext(ctx).Error("failed to load conversation",
			"user_id", userID, "conversation_id", id, "error", err)
		return nil, err
	}
}

type SaveInput struct {
	UserID         domain.UserID
	ConversationID domain.ConversationID
	Messages       []domain.Message
	Title          string
	ProjectType    domain.ProjectType
	IsoMode        bool
}

// Save rewrites a conversation. Pin state and creation time survive.
func (s *Service) Save(ctx context.Context, in SaveInput) (*domain.Conversation, domain.UpsertOutcome, error) {
	if err := domain.ValidateUser(in.UserID); err != nil {
		return nil, 0, err
	}
	if err := domain.ValidateConversationID(in.ConversationID); err != nil {
		return nil, 0, err
	}
	if err := domain.ValidateMessages(in.Messages); err != nil {
		return nil, 0, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"conversation_id", in.ConversationID,
	)

	conv, outcome, err := s.store.Create(ctx, domain.CreateInput{
		ID:          in.ConversationID,
		UserID:      in.UserID,
		Messages:    in.Messages,
		Title:       strings.TrimSpace(in.Title),
		ProjectType: in.ProjectType,
		IsoMode:     in.IsoMode,
	})
	if err != nil {
		log.Error("failed to save conversation", "error", err)
		return nil, 0, err
	}

	log.Info("conversation saved", "outcome", outcome.String(), "message_count", len(conv.Messages))
	return conv, outcome, nil
}

func (s *Service) Rename(ctx context.Context, userID domain.UserID, id domain.ConversationID, title string) error {
	if err := domain.ValidateUser(userID); err != nil {
		return err
	}
	if err := domain.ValidateConversationID(id); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Invalid("title", "Title is required")
	}

	return s.logged(ctx, "rename", userID, id, s.store.Rename(ctx, id, userID, title))
}

// TogglePin flips the pin flag and returns the new value.
func (s *Service) TogglePin(ctx context.Context, userID domain.UserID, id domain.ConversationID) (bool, error) {
	if err := domain.ValidateUser(userID); err != nil {
		return false, err
	}
	if err := domain.ValidateConversationID(id); err != nil {
		return false, err
	}

	starred, err := s.store.TogglePin(ctx, id, userID)
	if err := s.logged(ctx, "toggle pin", userID, id, err); err != nil {
		return false, err
	}
	return starred, nil
}

func (s *Service) Delete(ctx context.Context, userID domain.UserID, id domain.ConversationID) error {
	if err := domain.ValidateUser(userID); err != nil {
		return err
	}
	if err := domain.ValidateConversationID(id); err != nil {
		return err
	}

	return s.logged(ctx, "delete", userID, id, s.store.Delete(ctx, id, userID))
}

// logged records a failed mutation. Not found is logged at info.
func (s *Service) logged(ctx context.Context, op string, userID domain.UserID, id domain.ConversationID, err error) error {
	if err == nil {
		return nil
	}
	log := observability.LoggerFromContext(ctx).With(
		"op", op,
		"user_id", userID,
		"conversation_id", id,
	)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("conversation not found")
	} else {
		log.Error("conversation update failed", "error", err)
	}
	return err
}
