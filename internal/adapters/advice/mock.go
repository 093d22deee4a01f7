package advice

import (
	"context"
	"fmt"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

// MockClient answers locally without any network call.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Ask(ctx context.Context, msgs []domain.Message) (*domain.AdviceReply, error) {
	question := lastUserMessage(msgs)
	if question == "" {
		question = "your plant"
	}
	return successReply(fmt.Sprintf("Noted: %q. Start by checking the maintenance log for the affected equipment and tell me what changed recently.", question))
}
