// Package groq implements llm.DealExtractor against Groq's OpenAI-compatible
// chat/completions endpoint. The endpoint is treated as unreliable: every
// response goes through the defensive repair/validate/coerce pipeline.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crmkit/deal-consolidator/internal/llm"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

// ExtractDeals implements llm.DealExtractor.
func (c *Client) ExtractDeals(ctx context.Context, req llm.ExtractRequest) ([]schema.DealRecord, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, llm.ErrNoInputText
	}

	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"hint", req.SourceHint,
		"text_len", len(req.Text),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.SystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return nil, fmt.Errorf("no choices in completion response")
	}

	res, err := llm.RepairJSON(cc.Choices[0].Message.Content)
	if err != nil {
		c.logger.Error("llm.extract.repair_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	if res.Outcome == llm.ParsedSalvaged {
		c.logger.Warn("llm.extract.salvaged_json", "req_id", rid)
	}

	recs, err := llm.DecodeDeals(res.Doc)
	if err != nil {
		c.logger.Error("llm.extract.bad_envelope", "req_id", rid, "error", err)
		return nil, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"deals", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recs, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("completion response body close error", "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("completion status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}
