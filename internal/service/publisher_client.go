package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

// Publisher delivers one piece of content to one platform.
type Publisher interface {
	Publish(ctx context.Context, req transfer.PublishRequest) (*transfer.PublishResponse, error)
}

type httpPublisher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPublisher talks to the publish backend. Deadlines come from ctx; the
// orchestrator sets one per attempt.
func NewHTTPPublisher(baseURL string, client *http.Client) Publisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpPublisher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *httpPublisher) Publish(ctx context.Context, req transfer.PublishRequest) (*transfer.PublishResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/publish", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read publish response: %w", err)
	}

	var result transfer.PublishResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("publish backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return nil, fmt.Errorf("decode publish response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && result.Status == "" {
		result.Status = transfer.PublishStatusError
		if result.Error == "" {
			result.Error = fmt.Sprintf("publish backend returned %d", resp.StatusCode)
		}
	}
	return &result, nil
}
