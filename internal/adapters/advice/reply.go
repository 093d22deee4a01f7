package advice

import (
	"encoding/json"
	"fmt"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

// wireMessage is a message as the advice backend expects it.
type wireMessage struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type askRequest struct {
	Messages []wireMessage `json:"messages"`
}

// askResponse covers every field a backend may answer with. Older backends
// reply with "message" or "response" instead of "advice".
type askResponse struct {
	Success  bool   `json:"success"`
	Advice   string `json:"advice,omitempty"`
	Message  string `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r askResponse) text() string {
	switch {
	case r.Message != "":
		return r.Message
	case r.Response != "":
		return r.Response
	default:
		return r.Advice
	}
}

func toWire(msgs []domain.Message) askRequest {
	out := askRequest{Messages: make([]wireMessage, len(msgs))}
	for i, m := range msgs {
		out.Messages[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// decodeReply interprets a backend body. The body is kept verbatim in the reply.
func decodeReply(status int, body []byte) (*domain.AdviceReply, error) {
	var resp askResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response (status %d): %v", domain.ErrBackend, status, err)
	}
	return &domain.AdviceReply{
		Status:  status,
		Body:    body,
		Success: resp.Success,
		Text:    resp.text(),
		Error:   resp.Error,
	}, nil
}

// successReply builds the reply of a backend that produced text itself.
func successReply(text string) (*domain.AdviceReply, error) {
	body, err := json.Marshal(askResponse{Success: true, Advice: text})
	if err != nil {
		return nil, fmt.Errorf("%w: encode response: %v", domain.ErrBackend, err)
	}
	return &domain.AdviceReply{
		Status:  200,
		Body:    body,
		Success: true,
		Text:    text,
	}, nil
}

func lastUserMessage(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
