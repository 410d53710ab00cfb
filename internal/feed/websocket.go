package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout      = 60 * time.Second
	wsHandshakeTimeout = 10 * time.Second
)

// WSSource reads odds change envelopes from a websocket endpoint and
// reconnects with exponential backoff when the connection drops.
type WSSource struct {
	url     string
	events  chan domain.OddsChangeEvent
	metrics *infra.Metrics

	baseDelay time.Duration
	maxDelay  time.Duration

	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var _ domain.FeedWorker = (*WSSource)(nil)

// NewWSSource creates a websocket feed for url.
func NewWSSource(url string, metrics *infra.Metrics) *WSSource {
	return &WSSource{
		url:       url,
		events:    make(chan domain.OddsChangeEvent),
		metrics:   metrics,
		baseDelay: infra.DefaultBaseDelay,
		maxDelay:  infra.DefaultMaxDelay,
	}
}

// Events returns the unbuffered event channel. It is closed by Disconnect.
func (w *WSSource) Events() <-chan domain.OddsChangeEvent {
	return w.events
}

// Connect starts the WebSocket connection with automatic reconnection
func (w *WSSource) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil || w.stopped {
		return domain.ErrFeedStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.connectionLoop(ctx)

	return nil
}

// connectionLoop handles connection and reconnection with exponential backoff
func (w *WSSource) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Feed websocket panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Feed websocket loop stopped")
			return
		default:
		}

		err := w.connect(ctx)
		if err != nil && !domain.IsRetriable(err) {
			slog.Error("Feed websocket failed permanently", slog.Any("error", err))
			w.metrics.RecordError()
			return
		}
		if err != nil {
			slog.Warn("Feed websocket connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)
			w.metrics.RecordError()

			delay := infra.CalculateBackoff(retryCount, w.baseDelay, w.maxDelay)
			retryCount++
			if retryCount > infra.MaxRetries {
				slog.Error("Feed websocket max retries exceeded, resetting counter")
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		// Connection successful, reset retry counter
		retryCount = 0

		w.metrics.IncrementConnections()
		w.readLoop(ctx)
		w.metrics.DecrementConnections()
	}
}

func (w *WSSource) connect(ctx context.Context) error {
	u, err := url.Parse(w.url)
	if err != nil {
		return domain.NewFatalNetworkError("dial", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return domain.NewFatalNetworkError("dial", fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	slog.Info("Feed websocket connected", slog.String("url", w.url))
	return nil
}

// readLoop reads envelopes until the connection fails or ctx ends
func (w *WSSource) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.closeConnection()
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Feed websocket read error", slog.Any("error", err))
			}
			w.closeConnection()
			return
		}

		ev, err := DecodeEvent(message)
		if err != nil {
			slog.Warn("Feed message skipped", slog.Any("error", err))
			continue
		}

		select {
		case w.events <- ev:
			w.metrics.RecordFeedEvent()
		case <-ctx.Done():
			w.closeConnection()
			return
		}
	}
}

// closeConnection safely closes the WebSocket connection
func (w *WSSource) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

// Disconnect closes the connection, waits for the reader and closes the event channel.
func (w *WSSource) Disconnect() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.closeConnection()
	w.wg.Wait()
	close(w.events)
	slog.Info("Feed websocket disconnected")
}

// IsConnected returns connection status
func (w *WSSource) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *WSSource) String() string {
	return fmt.Sprintf("websocket(%s)", w.url)
}
