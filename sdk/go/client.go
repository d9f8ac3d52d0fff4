package bobsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrTransport wraps failures to reach the server at all.
	ErrTransport = errors.New("bobsdk: transport failure")
	// ErrMalformedResponse wraps bodies that could not be decoded on success.
	ErrMalformedResponse = errors.New("bobsdk: malformed response")
)

const defaultCacheSize = 256

// Client is a Bob Emploi HTTP API client.
type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Timeout    time.Duration

	// cache holds bodies of static lookups; nil disables caching.
	cache *lru.Cache[string, []byte]
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	cache, _ := lru.New[string, []byte](defaultCacheSize)
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
		cache:   cache,
	}
}

// WithAuthToken returns a copy of the client sending the bearer token. The
// copy shares the lookup cache.
func (c *Client) WithAuthToken(token string) *Client {
	cp := *c
	cp.AuthToken = token
	return &cp
}

// SetAuthToken changes the bearer token of later requests. It must not be
// called while requests are in flight.
func (c *Client) SetAuthToken(token string) {
	c.AuthToken = token
}

// APIError is returned for responses with a status of 400 or more. Message is
// the human readable part of the body.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// postJSON sends body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

// postNoResponse sends body and ignores whatever the server answers on success.
func (c *Client) postNoResponse(ctx context.Context, endpoint string, body any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

func (c *Client) deleteJSON(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodDelete, endpoint, body, out)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// getCached serves static lookups from the cache when possible.
func (c *Client) getCached(ctx context.Context, endpoint string, out any) error {
	if c.cache == nil {
		return c.getJSON(ctx, endpoint, out)
	}
	key := c.url(endpoint)
	if b, ok := c.cache.Get(key); ok {
		return decode(b, out)
	}
	b, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := decode(b, out); err != nil {
		return err
	}
	c.cache.Add(key, b)
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	b, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(b, out)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransport, endpoint, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(b), Body: string(b)}
	}
	return b, nil
}

func decode(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// errorMessage extracts the message of an error body: the JSON message field,
// else the first paragraph of an HTML page, else the page text, else the body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if p := strings.TrimSpace(doc.Find("p").First().Text()); p != "" {
			return p
		}
		if text := strings.TrimSpace(doc.Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) url(endpoint string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
