package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type openaiClient struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

func (c *openaiClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"model":       c.model,
		"prompt":      prompt,
		"max_tokens":  200,
		"temperature": 0.2,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("openai: status %d: %s", res.StatusCode, snippet(raw))
	}

	var data struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(data.Choices) == 0 {
		return "", nil
	}
	return data.Choices[0].Text, nil
}
