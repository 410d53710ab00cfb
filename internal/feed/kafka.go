package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"odds_grid/internal/domain"
	"odds_grid/internal/infra"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic carries odds change envelopes keyed by match id.
const DefaultTopic = "odds_changes"

// messageReader is the part of *kafka.Reader the source uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Config() kafka.ReaderConfig
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes odds change envelopes from a Kafka topic.
type KafkaSource struct {
	reader  messageReader
	events  chan domain.OddsChangeEvent
	metrics *infra.Metrics

	baseDelay time.Duration
	maxDelay  time.Duration

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ domain.FeedWorker = (*KafkaSource)(nil)

// NewKafkaSource creates a consumer-group reader. Only new messages are read;
// odds older than the session are irrelevant to the grid.
func NewKafkaSource(brokers []string, topic, groupID string, metrics *infra.Metrics) *KafkaSource {
	if topic == "" {
		topic = DefaultTopic
	}
	return newKafkaSource(kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	}), metrics)
}

func newKafkaSource(r messageReader, metrics *infra.Metrics) *KafkaSource {
	return &KafkaSource{
		reader:    r,
		events:    make(chan domain.OddsChangeEvent),
		metrics:   metrics,
		baseDelay: infra.DefaultBaseDelay,
		maxDelay:  infra.DefaultMaxDelay,
	}
}

// Events returns the unbuffered event channel. It is closed by Disconnect.
func (k *KafkaSource) Events() <-chan domain.OddsChangeEvent {
	return k.events
}

// Connect starts consuming.
func (k *KafkaSource) Connect(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cancel != nil || k.stopped {
		return domain.ErrFeedStarted
	}
	ctx, k.cancel = context.WithCancel(ctx)

	k.wg.Add(1)
	go k.readLoop(ctx)

	cfg := k.reader.Config()
	slog.Info("Kafka feed started", slog.String("topic", cfg.Topic), slog.Any("brokers", cfg.Brokers))
	return nil
}

func (k *KafkaSource) readLoop(ctx context.Context) {
	defer k.wg.Done()

	retryCount := 0
	for {
		m, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("Kafka read failed", slog.Any("error", err), slog.Int("retry", retryCount))
			k.metrics.RecordError()

			delay := infra.CalculateBackoff(retryCount, k.baseDelay, k.maxDelay)
			retryCount = min(retryCount+1, infra.MaxRetries)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}
		retryCount = 0

		ev, err := DecodeEvent(m.Value)
		if err != nil {
			slog.Warn("Kafka message skipped", slog.Int64("offset", m.Offset), slog.Any("error", err))
			continue
		}

		select {
		case k.events <- ev:
			k.metrics.RecordFeedEvent()
		case <-ctx.Done():
			return
		}
	}
}

// Disconnect stops the reader and closes the event channel.
func (k *KafkaSource) Disconnect() {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return
	}
	k.stopped = true
	cancel := k.cancel
	k.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	k.wg.Wait()
	if err := k.reader.Close(); err != nil {
		slog.Warn("Kafka reader close failed", slog.Any("error", err))
	}
	close(k.events)
	slog.Info("Kafka feed stopped")
}

// KafkaPublisher writes odds change envelopes to a topic.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a writer. Messages are keyed by match id so the
// changes of one match stay ordered within a partition.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	})
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.OddsChangeEvent) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.MatchID),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return domain.NewNetworkError("kafka_write", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
