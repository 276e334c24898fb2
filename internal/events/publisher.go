// Package events publishes verdict events for out-of-band alerting and
// regulatory audit forwarding. Publishing is fire-and-forget: a broker outage
// must never slow down or fail a validation.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/config"
)

// VerdictEvent is emitted once per completed validation.
type VerdictEvent struct {
	ID           string    `json:"id"`
	AdvisorID    string    `json:"advisor_id"`
	ContentType  string    `json:"content_type"`
	Language     string    `json:"language"`
	RiskScore    int       `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
	IsCompliant  bool      `json:"is_compliant"`
	FallbackUsed bool      `json:"fallback_used"`
	CacheHit     bool      `json:"cache_hit"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher emits verdict events.
type Publisher interface {
	PublishVerdict(event VerdictEvent)
	Close() error
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishVerdict(VerdictEvent) {}
func (NoopPublisher) Close() error                { return nil }

// KafkaPublisher sends verdict events through an async producer. Delivery
// errors are logged, not surfaced.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
	done     chan struct{}
}

// NewKafkaPublisher connects an async producer to the configured brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Compression = sarama.CompressionSnappy
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Return.Successes = false

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    cfg.VerdictTopic,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p, nil
}

func (p *KafkaPublisher) drainErrors() {
	defer close(p.done)
	for err := range p.producer.Errors() {
		p.logger.Warn("Failed to publish verdict event", zap.Error(err))
	}
}

func (p *KafkaPublisher) PublishVerdict(event VerdictEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("Failed to marshal verdict event", zap.Error(err))
		return
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AdvisorID),
		Value: sarama.ByteEncoder(payload),
	}
}

func (p *KafkaPublisher) Close() error {
	p.producer.AsyncClose()
	<-p.done
	return nil
}
