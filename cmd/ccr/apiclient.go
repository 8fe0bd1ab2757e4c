package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// controlClient is a small HTTP client for the gateway's Control API,
// grounded on the same bearer-token contract internal/api enforces.
type controlClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newControlClient() *controlClient {
	return &controlClient{
		baseURL: apiAddr,
		token:   apiToken,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *controlClient) do(method, path string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("connect to control api at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out, nil
}
