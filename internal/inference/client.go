package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
)

// Poster sends a JSON body. collyfetcher.Fetcher satisfies it.
type Poster interface {
	PostJSON(ctx context.Context, rawURL string, payload any) (collyfetcher.Response, error)
}

// Result is the endpoint's answer. Every field is optional.
type Result struct {
	WordsInMark      *string `json:"wordsInMark"`
	ChineseCharacter *string `json:"chineseCharacter"`
	DescrOfDevice    *string `json:"descrOfDevice"`
}

type invokeRequest struct {
	Image string `json:"image"`
}

// Client describes images through the local inference endpoint.
type Client struct {
	poster   Poster
	endpoint string
	logger   *zap.Logger
}

// NewClient returns a Client posting to <baseURL>/invoke.
func NewClient(poster Poster, baseURL string, logger *zap.Logger) (*Client, error) {
	if poster == nil {
		return nil, fmt.Errorf("http client is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse inference base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("inference base url %q must be absolute", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		poster:   poster,
		endpoint: strings.TrimRight(baseURL, "/") + "/invoke",
		logger:   logger,
	}, nil
}

// Endpoint is the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Describe encodes the item's image and posts it. Every error becomes a Failure.
func (c *Client) Describe(ctx context.Context, item Item) batch.Outcome[Result] {
	key := item.ImageName
	raw, err := os.ReadFile(item.Path)
	if err != nil {
		return batch.Failure[Result](key, fmt.Errorf("%w: read image: %v", batch.ErrStorage, err))
	}
	req := invokeRequest{Image: base64.StdEncoding.EncodeToString(raw)}
	resp, err := c.poster.PostJSON(ctx, c.endpoint, req)
	if err != nil {
		return batch.Failure[Result](key, fmt.Errorf("%w: %v", batch.ErrTransport, err))
	}
	if !resp.OK() {
		return batch.Failure[Result](key, fmt.Errorf("%w: %d", batch.ErrStatus, resp.StatusCode))
	}
	var res Result
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return batch.Failure[Result](key, fmt.Errorf("%w: %v", batch.ErrDecode, err))
	}
	c.logger.Debug("image described", zap.String("image", key), zap.Duration("dur", resp.Duration))
	return batch.Success(key, res)
}
