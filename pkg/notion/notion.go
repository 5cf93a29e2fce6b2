package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "https://api.notion.com"
	defaultVersion       = "2022-06-28"
	maxResponseSizeBytes = 1 << 20
)

type Config struct {
	Token        string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	ParentPageID string        `envconfig:"PARENT_PAGE_ID" split_words:"true" required:"true"`
	BaseURL      string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.notion.com"`
	Version      string        `envconfig:"VERSION" split_words:"true" default:"2022-06-28"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Page is the transport-level shape of one note page: a title plus heading +
// paragraph sections rendered as Notion blocks.
type Page struct {
	Title    string
	Sections []Section
}

type Section struct {
	Heading string
	Body    string
}

// Client talks to the Notion REST API. It only implements what the summarize
// stage needs: creating a child page under a fixed parent.
type Client struct {
	baseURL      string
	token        string
	version      string
	parentPageID string
	httpClient   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("notion token is required")
	}
	parent := strings.TrimSpace(cfg.ParentPageID)
	if parent == "" {
		return nil, errors.New("notion parent page id is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid notion base url: %w", err)
	}

	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = defaultVersion
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:      baseURL,
		token:        token,
		version:      version,
		parentPageID: parent,
		httpClient:   &http.Client{Timeout: timeout},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type createPageResponse struct {
	URL string `json:"url"`
}

// CreatePage creates one page under the configured parent and returns the
// created page URL.
func (c *Client) CreatePage(ctx context.Context, page Page) (string, error) {
	if strings.TrimSpace(page.Title) == "" {
		return "", errors.New("page title is required")
	}

	children := make([]map[string]any, 0, len(page.Sections)*2)
	for _, section := range page.Sections {
		children = append(children,
			headingBlock(section.Heading),
			paragraphBlock(section.Body),
		)
	}

	body := map[string]any{
		"parent": map[string]any{"page_id": c.parentPageID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{
					{"text": map[string]any{"content": page.Title}},
				},
			},
		},
		"children": children,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal notion page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute notion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read notion response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("notion http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed createPageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode notion response: %w", err)
	}
	if strings.TrimSpace(parsed.URL) == "" {
		return "", errors.New("notion response has no page url")
	}
	return parsed.URL, nil
}

func headingBlock(content string) map[string]any {
	return map[string]any{
		"type": "heading_2",
		"heading_2": map[string]any{
			"rich_text": []map[string]any{
				{"type": "text", "text": map[string]any{"content": content}},
			},
		},
	}
}

func paragraphBlock(content string) map[string]any {
	return map[string]any{
		"type": "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{
				{"type": "text", "text": map[string]any{"content": content}},
			},
		},
	}
}
