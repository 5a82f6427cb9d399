// Package backup pushes wiki snapshots to a public snippet-sharing service.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"markwiki/app/internal/dbservice"
)

const (
	defaultPublicBaseURL  = "https://glot.io/snippets"
	defaultRequestTimeout = 15 * time.Second
)

// Options configures the backup client.
type Options struct {
	// Endpoint is the snippet-creation URL the payload is POSTed to.
	Endpoint string
	// PublicBaseURL is the browsable prefix the snippet ID is appended to.
	PublicBaseURL string
	Timeout       time.Duration
	Logger        *logrus.Logger
	HTTPClient    *stdhttp.Client
}

// Client uploads page dumps as public snippets.
type Client struct {
	endpoint      string
	publicBaseURL string
	http          *stdhttp.Client
	logger        *logrus.Logger
}

// NewClient constructs a backup client for the configured snippet service.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, eris.New("backup endpoint is required")
	}

	publicBase := opts.PublicBaseURL
	if publicBase == "" {
		publicBase = defaultPublicBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &stdhttp.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:      opts.Endpoint,
		publicBaseURL: strings.TrimSuffix(publicBase, "/"),
		http:          httpClient,
		logger:        opts.Logger,
	}, nil
}

type snippetFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type snippetPayload struct {
	Files    []snippetFile `json:"files"`
	Language string        `json:"language"`
	Title    string        `json:"title"`
	Public   string        `json:"public"`
}

// Push uploads the pages as one snippet and returns its browsable URL.
func (c *Client) Push(ctx context.Context, pages []dbservice.PageData) (string, error) {
	payload := snippetPayload{
		Files:    make([]snippetFile, 0, len(pages)),
		Language: "markdown",
		Title:    "markwiki-backup",
		Public:   "true",
	}
	for _, p := range pages {
		payload.Files = append(payload.Files, snippetFile{Name: p.Name, Content: p.Content})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "encoding backup payload")
	}

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", eris.Wrap(err, "building backup request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logError(err, "sending backup request")
		return "", eris.Wrap(err, "sending backup request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := eris.Errorf("backup service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		c.logError(err, "backup rejected")
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", eris.Wrap(err, "decoding backup response")
	}
	if created.ID == "" {
		return "", eris.New("backup response is missing a snippet id")
	}

	return c.publicBaseURL + "/" + created.ID, nil
}

func (c *Client) logError(err error, message string) {
	if c.logger == nil {
		return
	}

	c.logger.WithField("error", err.Error()).Error(message)
}
