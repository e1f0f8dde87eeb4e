package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"opinionpointer/internal/domain/models"
	xhttp "opinionpointer/pkg/http"
)

// Fetcher pulls the current payload of a tracked channel over HTTP.
type Fetcher struct {
	client *xhttp.Client
}

// NewFetcher creates a channel fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: xhttp.NewClient(xhttp.WithTimeout(timeout))}
}

// FetchChannel downloads the channel payload and returns the number of items
// it carried. Channels are expected to serve a JSON array or an object with
// an "items" array.
func (f *Fetcher) FetchChannel(ctx context.Context, ch models.Channel) (int, error) {
	var body []byte
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    ch.URL,
		Headers: map[string]string{
			"Accept": "application/json",
		},
	}, &body)
	if err != nil {
		return 0, fmt.Errorf("fetch channel %s: %w", ch.Name, err)
	}
	return countItems(body), nil
}

func countItems(body []byte) int {
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err == nil {
		return len(arr)
	}
	var obj struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		return len(obj.Items)
	}
	return 0
}
