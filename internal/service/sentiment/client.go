package sentiment

import (
	"context"
	"fmt"
	"time"

	"opinionpointer/internal/domain/models"
	svcmetrics "opinionpointer/internal/service/metrics"
	"opinionpointer/pkg/config"
	xhttp "opinionpointer/pkg/http"
)

// Client is the HTTP client for the external sentiment provider.
type Client struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

// NewClient builds a provider client with timeout and base URL from config.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Sentiment.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	svcmetrics.Register()
	return &Client{
		baseURL: cfg.Sentiment.BaseURL,
		apiKey:  cfg.Sentiment.APIKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// providerSnapshot is the provider wire format.
type providerSnapshot struct {
	Score       float64 `json:"score"`
	Label       string  `json:"label"`
	Emoji       string  `json:"emoji"`
	Description string  `json:"description"`
	Multiplier  float64 `json:"multiplier"`
	Timestamp   int64   `json:"timestamp"`   // unix seconds
	NextUpdate  int64   `json:"next_update"` // unix seconds
}

type providerHealth struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Fetch retrieves the current sentiment snapshot from the provider.
func (c *Client) Fetch(ctx context.Context) (*models.MarketSentimentData, error) {
	var raw providerSnapshot
	if err := c.getJSON(ctx, "/v1/sentiment", &raw); err != nil {
		return nil, err
	}

	snap := &models.MarketSentimentData{
		Sentiment:   models.LevelForScore(raw.Score),
		Score:       raw.Score,
		Label:       raw.Label,
		Emoji:       raw.Emoji,
		Description: raw.Description,
		Multiplier:  raw.Multiplier,
		Timestamp:   time.Unix(raw.Timestamp, 0).UTC(),
		NextUpdate:  time.Unix(raw.NextUpdate, 0).UTC(),
	}
	if raw.Timestamp == 0 {
		snap.Timestamp = time.Now().UTC()
	}
	return snap, nil
}

// Health probes the provider health endpoint.
func (c *Client) Health(ctx context.Context) (*models.ProviderHealth, error) {
	var raw providerHealth
	if err := c.getJSON(ctx, "/v1/health", &raw); err != nil {
		return nil, err
	}
	return &models.ProviderHealth{
		Healthy:   raw.Status == "ok" || raw.Status == models.StatusHealthy,
		Message:   raw.Message,
		CheckedAt: time.Now().UTC(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	if c.client == nil || c.baseURL == "" {
		return fmt.Errorf("sentiment provider client not initialized")
	}
	start := time.Now()
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["X-Api-Key"] = c.apiKey
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + path,
		Headers: headers,
	}, dest)
	svcmetrics.ProviderLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.ProviderErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
