// Package remote is the thin HTTP transport to the readlog server. It holds
// no sync logic; its one piece of smarts is the response-shape adapter that
// always hands the sync engine a canonical slice regardless of whether the
// server returned a bare array or a wrapped object.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"readlog/internal/reading"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// Client talks to one readlog server on behalf of one authenticated user.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient builds a client. httpClient may be nil to use a default client.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// ListEntries fetches the user's entries, optionally for a single day.
func (c *Client) ListEntries(ctx context.Context, dayKey string) ([]reading.Entry, error) {
	path := "/entries"
	if dayKey != "" {
		path += "?day=" + dayKey
	}
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeEntries(raw)
}

// UpsertEntry creates or overwrites the entry with the same
// (dayKey, category) key.
func (c *Client) UpsertEntry(ctx context.Context, e reading.Entry) (*reading.Entry, error) {
	raw, err := c.do(ctx, http.MethodPost, "/entries", e)
	if err != nil {
		return nil, err
	}
	return decodeWrapped[reading.Entry](raw, "entry")
}

// DeleteEntry removes the entry for (dayKey, category). Deleting an absent
// entry succeeds.
func (c *Client) DeleteEntry(ctx context.Context, dayKey string, category reading.Category) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/entries/%s/%s", dayKey, category))
	return ignoreNotFound(err)
}

// ListTopics fetches the user's topics with embedded, presentation-ordered
// items.
func (c *Client) ListTopics(ctx context.Context) ([]reading.Topic, error) {
	raw, err := c.do(ctx, http.MethodGet, "/topics", nil)
	if err != nil {
		return nil, err
	}
	return decodeTopics(raw)
}

// CreateTopic creates (or idempotently re-creates by client id) a topic.
func (c *Client) CreateTopic(ctx context.Context, name, clientID string) (*reading.Topic, error) {
	raw, err := c.do(ctx, http.MethodPost, "/topics", map[string]string{
		"name":      name,
		"client_id": clientID,
	})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[reading.Topic](raw, "topic")
}

// AddTopicItem adds (or idempotently re-adds by client id) an item under the
// topic identified by its stable client id.
func (c *Client) AddTopicItem(ctx context.Context, topicID string, item reading.TopicItem) (*reading.TopicItem, error) {
	raw, err := c.do(ctx, http.MethodPost, "/topics/"+topicID+"/items", item)
	if err != nil {
		return nil, err
	}
	return decodeWrapped[reading.TopicItem](raw, "item")
}

// ToggleTopicItemFinished flips an item's finished flag.
func (c *Client) ToggleTopicItemFinished(ctx context.Context, topicID, itemID string) (*reading.TopicItem, error) {
	raw, err := c.do(ctx, http.MethodPost, "/topics/"+topicID+"/items/"+itemID+"/toggle", nil)
	if err != nil {
		return nil, err
	}
	return decodeWrapped[reading.TopicItem](raw, "item")
}

// DeleteTopicItem removes an item. Deleting something already gone satisfies
// the caller's intent, so a 404 is success.
func (c *Client) DeleteTopicItem(ctx context.Context, topicID, itemID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/topics/"+topicID+"/items/"+itemID)
	return ignoreNotFound(err)
}

func ignoreNotFound(err error) error {
	if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body ...any) ([]byte, error) {
	var rdr io.Reader
	if len(body) > 0 && body[0] != nil {
		buf, err := json.Marshal(body[0])
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: snippet(raw)}
	}
	return raw, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// decodeEntries accepts either a bare array or {"entries": [...]}.
func decodeEntries(raw []byte) ([]reading.Entry, error) {
	var wrapped struct {
		Entries []reading.Entry `json:"entries"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Entries != nil {
		return wrapped.Entries, nil
	}
	var direct []reading.Entry
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}
	return nil, fmt.Errorf("unrecognized entries payload")
}

// decodeTopics accepts either a bare array or {"topics": [...]}.
func decodeTopics(raw []byte) ([]reading.Topic, error) {
	var wrapped struct {
		Topics []reading.Topic `json:"topics"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Topics != nil {
		return wrapped.Topics, nil
	}
	var direct []reading.Topic
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}
	return nil, fmt.Errorf("unrecognized topics payload")
}

func decodeWrapped[T any](raw []byte, field string) (*T, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	inner, ok := m[field]
	if !ok {
		inner = raw
	}
	var v T
	if err := json.Unmarshal(inner, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return &v, nil
}
