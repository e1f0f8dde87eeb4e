package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"opinionpointer/internal/domain/models"
	domsvc "opinionpointer/internal/domain/service"
)

const defaultReconnectDelay = 5 * time.Second

// Stream implements a SentimentStream backed by the provider WebSocket feed.
type Stream struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a provider sentiment stream. A non-positive reconnect
// delay falls back to defaultReconnectDelay so a failing endpoint is never
// redialed in a tight loop.
func NewStream(apiKey, websocketURL string, reconnectDelay time.Duration) domsvc.SentimentStream {
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	return &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("sentiment stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	log.Printf("sentiment stream: connected")
	return nil
}

type wsUpdate struct {
	Type        string  `json:"type"`
	Score       float64 `json:"score"`
	Label       string  `json:"label"`
	Emoji       string  `json:"emoji"`
	Description string  `json:"description"`
	Multiplier  float64 `json:"multiplier"`
	T           int64   `json:"t"` // unix seconds
}

// Read streams sentiment updates and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.MarketSentimentData, <-chan error) {
	updates := make(chan *models.MarketSentimentData, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("sentiment stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("sentiment stream read: %w", err)
					return
				}
				var m wsUpdate
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-update frames
					continue
				}
				if m.Type != "sentiment" {
					continue
				}
				snap := &models.MarketSentimentData{
					Sentiment:   models.LevelForScore(m.Score),
					Score:       m.Score,
					Label:       m.Label,
					Emoji:       m.Emoji,
					Description: m.Description,
					Multiplier:  m.Multiplier,
					Timestamp:   time.Unix(m.T, 0).UTC(),
				}
				select {
				case updates <- snap:
				default:
					// drop on backpressure; the next update supersedes it anyway
				}
			}
		}
	}()

	return updates, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-time.After(s.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Connect(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
