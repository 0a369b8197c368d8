package mq

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"codearena/pkg/logger"
)

const (
	headerID         = "x-message-id"
	headerTimestamp  = "x-message-ts"
	headerRetryCount = "x-message-retry"
	headerMaxRetries = "x-message-max-retries"
)

// KafkaConfig defines configuration for the Kafka implementation.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	ClientID string   `yaml:"clientId"`
	GroupID  string   `yaml:"groupId"`

	BatchSize    int           `yaml:"batchSize"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	MinBytes     int           `yaml:"minBytes"`
	MaxBytes     int           `yaml:"maxBytes"`
	MaxWait      time.Duration `yaml:"maxWait"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
}

// KafkaQueue implements MessageQueue using kafka-go.
type KafkaQueue struct {
	config KafkaConfig
	writer *kafka.Writer
	dialer *kafka.Dialer

	mu            sync.Mutex
	subscriptions []*kafkaSubscription
	started       bool
	closed        bool
}

type kafkaSubscription struct {
	topic   string
	handler HandlerFunc
	baseCtx context.Context

	reader *kafka.Reader
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaQueue creates a Kafka-backed message queue.
func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers are required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1 << 10
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	dialer := &kafka.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   cfg.DialTimeout,
		DualStack: true,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, address)
			},
			ClientID: cfg.ClientID,
		},
	}
	return &KafkaQueue{config: cfg, writer: writer, dialer: dialer}, nil
}

// Publish publishes a message to a topic.
func (k *KafkaQueue) Publish(ctx context.Context, topic string, message *Message) error {
	if message == nil {
		return errors.New("message is nil")
	}
	if topic == "" {
		return errors.New("topic is required")
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	return k.writer.WriteMessages(ctx, toKafkaMessage(topic, message))
}

// Subscribe registers a handler. Consumption begins on Start.
func (k *KafkaQueue) Subscribe(ctx context.Context, topic string, handler HandlerFunc) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return errors.New("queue is closed")
	}
	if k.started {
		return errors.New("cannot subscribe after Start")
	}
	k.subscriptions = append(k.subscriptions, &kafkaSubscription{
		topic:   topic,
		handler: handler,
		baseCtx: ctx,
	})
	return nil
}

// Start launches one reader goroutine per subscription.
func (k *KafkaQueue) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return errors.New("queue is closed")
	}
	if k.started {
		return nil
	}
	for _, sub := range k.subscriptions {
		sub.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  k.config.Brokers,
			GroupID:  k.config.GroupID,
			Topic:    sub.topic,
			Dialer:   k.dialer,
			MinBytes: k.config.MinBytes,
			MaxBytes: k.config.MaxBytes,
			MaxWait:  k.config.MaxWait,
		})
		ctx, cancel := context.WithCancel(sub.baseCtx)
		sub.cancel = cancel
		sub.wg.Add(1)
		go k.consume(ctx, sub)
	}
	k.started = true
	return nil
}

func (k *KafkaQueue) consume(ctx context.Context, sub *kafkaSubscription) {
	defer sub.wg.Done()
	for {
		kmsg, err := sub.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			logger.Errorf(ctx, "fetch from topic %s failed: %v", sub.topic, err)
			continue
		}

		msg := fromKafkaMessage(&kmsg)
		if err := sub.handler(ctx, msg); err != nil {
			logger.Errorf(ctx, "handler failed for message %s on %s: %v", msg.ID, sub.topic, err)
			if msg.RetryCount < msg.MaxRetries {
				msg.RetryCount++
				if pubErr := k.Publish(ctx, sub.topic, msg); pubErr != nil {
					logger.Errorf(ctx, "requeue of message %s failed: %v", msg.ID, pubErr)
				}
			}
		}
		if err := sub.reader.CommitMessages(ctx, kmsg); err != nil {
			logger.Errorf(ctx, "commit on topic %s failed: %v", sub.topic, err)
		}
	}
}

// Stop cancels all subscriptions and waits for the readers to drain.
func (k *KafkaQueue) Stop() error {
	k.mu.Lock()
	subs := k.subscriptions
	k.started = false
	k.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if sub.cancel != nil {
			sub.cancel()
		}
		sub.wg.Wait()
		if sub.reader != nil {
			if err := sub.reader.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Ping dials the first broker to verify connectivity.
func (k *KafkaQueue) Ping(ctx context.Context) error {
	conn, err := k.dialer.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

// Close stops consumption and closes the writer.
func (k *KafkaQueue) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	stopErr := k.Stop()
	if err := k.writer.Close(); err != nil {
		return err
	}
	return stopErr
}

func toKafkaMessage(topic string, message *Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(message.Headers)+4)
	for key, value := range message.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	headers = append(headers,
		kafka.Header{Key: headerID, Value: []byte(message.ID)},
		kafka.Header{Key: headerTimestamp, Value: []byte(message.Timestamp.Format(time.RFC3339Nano))},
		kafka.Header{Key: headerRetryCount, Value: []byte(strconv.Itoa(message.RetryCount))},
		kafka.Header{Key: headerMaxRetries, Value: []byte(strconv.Itoa(message.MaxRetries))},
	)
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(message.ID),
		Value:   message.Body,
		Headers: headers,
	}
}

func fromKafkaMessage(kmsg *kafka.Message) *Message {
	msg := &Message{
		Body:      kmsg.Value,
		Headers:   make(map[string]string),
		Timestamp: kmsg.Time,
	}
	for _, h := range kmsg.Headers {
		switch h.Key {
		case headerID:
			msg.ID = string(h.Value)
		case headerTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, string(h.Value)); err == nil {
				msg.Timestamp = ts
			}
		case headerRetryCount:
			msg.RetryCount, _ = strconv.Atoi(string(h.Value))
		case headerMaxRetries:
			msg.MaxRetries, _ = strconv.Atoi(string(h.Value))
		default:
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	if msg.ID == "" {
		msg.ID = string(kmsg.Key)
	}
	return msg
}
