package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type groqClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func (c *groqClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"prompt":     prompt,
		"max_tokens": 200,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
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
		return "", fmt.Errorf("groq: status %d: %s", res.StatusCode, snippet(raw))
	}

	// The response shape varies by deployment; try the known fields in
	// order and fall back to the raw payload.
	var data struct {
		Output  string `json:"output"`
		Text    string `json:"text"`
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}

	switch {
	case data.Output != "":
		return data.Output, nil
	case len(data.Choices) > 0 && data.Choices[0].Text != "":
		return data.Choices[0].Text, nil
	case data.Text != "":
		return data.Text, nil
	}
	return string(raw), nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
