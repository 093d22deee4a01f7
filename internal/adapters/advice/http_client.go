package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/ask-michael/internal/domain"
	"github.com/PabloGalante/ask-michael/internal/observability"
)

const maxResponseBytes = 4 << 20

// HTTPClient calls a remote advice backend at POST {baseURL}/api/ask.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Ask implements domain.AdviceClient. Any JSON answer is a reply whatever its
// status; transport failures and non-JSON bodies are ErrBackend.
func (c *HTTPClient) Ask(ctx context.Context, msgs []domain.Message) (*domain.AdviceReply, error) {
	payload, err := json.Marshal(toWire(msgs))
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrBackend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if reqID := observability.RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrBackend, err)
	}

	observability.LoggerFromContext(ctx).Debug("advice backend answered",
		"status", res.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return decodeReply(res.StatusCode, body)
}
