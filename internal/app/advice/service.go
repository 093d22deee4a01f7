package advice

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/ask-michael/internal/domain"
	"github.com/PabloGalante/ask-michael/internal/observability"
)

// DefaultDailyLimit is the number of successful exchanges a user gets before
// requests are rejected.
const DefaultDailyLimit = 50

// Service runs one advice request: validate, check the usage limit, call the
// backend, then record usage and the exchange.
type Service struct {
	usage   domain.UsageStore
	convs   domain.ConversationStore
	backend domain.AdviceClient
	limit   int64
}

func NewService(usage domain.UsageStore, convs domain.ConversationStore, backend domain.AdviceClient, dailyLimit int64) *Service {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Service{
		usage:   usage,
		convs:   convs,
		backend: backend,
		limit:   dailyLimit,
	}
}

type AskInput struct {
	UserID         domain.UserID
	ConversationID domain.ConversationID
	Messages       []domain.Message
}

// AskResult is the backend answer as it must reach the caller.
type AskResult struct {
	Status int
	Body   []byte
}

// Ask returns ErrUnauthorized, a ValidationError, ErrRateLimited, a
// StorageError from the limit check or ErrBackend. Once the backend has
// answered, the answer is returned even if recording it fails.
func (s *Service) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"conversation_id", in.ConversationID,
	)
	log.Info("ask request", "message_count", len(in.Messages))

	count, err := s.messageCount(ctx, in.UserID)
	if err != nil {
		log.Error("usage lookup failed", "error", err)
		return nil, err
	}
	if count >= s.limit {
		log.Info("daily limit reached", "message_count", count, "daily_limit", s.limit)
		return nil, domain.ErrRateLimited
	}

	reply, err := s.backend.Ask(ctx, in.Messages)
	if err != nil {
		log.Error("ask backend error", "error", err)
		return nil, err
	}

	if reply.Success {
		log.Info("ask success", "status", reply.Status)
		// The client may be gone by now; the exchange is still recorded.
		s.persist(context.WithoutCancel(ctx), in, reply.Text)
	} else {
		log.Warn("ask backend error", "status", reply.Status, "backend_error", reply.Error)
	}

	return &AskResult{Status: reply.Status, Body: reply.Body}, nil
}

func (s *Service) validate(in AskInput) error {
	if err := domain.ValidateUser(in.UserID); err != nil {
		return err
	}
	if len(in.Messages) == 0 {
		return domain.Invalid("messages", "Invalid request - messages array required")
	}
	if err := domain.ValidateMessages(in.Messages); err != nil {
		return err
	}
	return domain.ValidateConversationID(in.ConversationID)
}

func (s *Service) messageCount(ctx context.Context, userID domain.UserID) (int64, error) {
	u, err := s.usage.GetUsage(ctx, userID)
	switch {
	case err == nil:
		return u.MessageCount, nil
	case errors.Is(err, domain.ErrNotFound):
		return 0, nil
	default:
		return 0, err
	}
}

// persist records usage and then appends the latest user message with the
// assistant answer. The two writes are independent; when recording usage
// fails the append is skipped. Failures are only logged.
func (s *Service) persist(ctx context.Context, in AskInput, advice string) {
	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"conversation_id", in.ConversationID,
	)

	if _, err := s.usage.RecordUsage(ctx, in.UserID); err != nil {
		log.Error("persist failed", "step", "record usage", "error", err)
		return
	}

	exchange := []domain.Message{
		in.Messages[len(in.Messages)-1],
		{Role: domain.RoleAssistant, Content: advice},
	}
	if _, err := s.convs.Append(ctx, in.ConversationID, in.UserID, exchange); err != nil {
		log.Error("persist failed", "step", "append messages", "error", err)
		return
	}

	log.Info("conversation saved")
}

// Usage is what a user has consumed against the limit.
type Usage struct {
	MessageCount  int64 `json:"messageCount"`
	TotalRequests int64 `json:"totalRequests"`
	DailyLimit    int64 `json:"dailyLimit"`
}

func (s *Service) Usage(ctx context.Context, userID domain.UserID) (*Usage, error) {
	if err := domain.ValidateUser(userID); err != nil {
		return nil, err
	}

	out := &Usage{DailyLimit: s.limit}
	u, err := s.usage.GetUsage(ctx, userID)
	switch {
	case err == nil:
		out.MessageCount = u.MessageCount
		out.TotalRequests = u.TotalRequests
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("usage for %s: %w", userID, err)
	}
	return out, nil
}
