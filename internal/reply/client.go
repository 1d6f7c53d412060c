// Package reply implements the chat platform collaborators: posting reply
// messages and fetching image content, both behind bearer-token HTTP calls.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes caps content downloads; matches the upload cap on the
// standalone endpoint.
const maxImageBytes = 10 << 20

type Client struct {
	httpClient *http.Client
	replyURL   string
	contentURL string
	token      string
}

func NewClient(replyURL, contentBaseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		replyURL:   replyURL,
		contentURL: strings.TrimRight(contentBaseURL, "/"),
		token:      token,
	}
}

type replyPayload struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyPayload{
		ReplyToken: replyToken,
		Messages:   []replyMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.replyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reply endpoint returned %s", resp.Status)
	}
	return nil
}

// Fetch downloads the image bytes behind a message ID.
func (c *Client) Fetch(ctx context.Context, messageID string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/content", c.contentURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content endpoint returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}
