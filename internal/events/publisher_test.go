package events

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent() VerdictEvent {
	return VerdictEvent{
		ID:          "req-1",
		AdvisorID:   "INA000000001",
		ContentType: "whatsapp",
		Language:    "en",
		RiskScore:   100,
		RiskLevel:   "critical",
		IsCompliant: false,
		DurationMs:  120,
		Timestamp:   time.Now().UTC(),
	}
}

func newMockPublisher(t *testing.T, mock sarama.AsyncProducer) *KafkaPublisher {
	t.Helper()
	p := &KafkaPublisher{
		producer: mock,
		topic:    "compliance.verdicts",
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p
}

func TestNoopPublisher(t *testing.T) {
	p := NoopPublisher{}
	p.PublishVerdict(sampleEvent())
	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_PublishVerdict(t *testing.T) {
	mock := mocks.NewAsyncProducer(t, mocks.NewTestConfig())
	mock.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "compliance.verdicts" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "INA000000001" {
			return fmt.Errorf("events must be keyed by advisor, got %q", key)
		}
		payload, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event VerdictEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		if event.RiskLevel != "critical" || event.RiskScore != 100 {
			return fmt.Errorf("verdict fields lost in transit: %+v", event)
		}
		return nil
	})

	p := newMockPublisher(t, mock)
	p.PublishVerdict(sampleEvent())
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_DeliveryErrorIsAbsorbed(t *testing.T) {
	mock := mocks.NewAsyncProducer(t, mocks.NewTestConfig())
	mock.ExpectInputAndFail(sarama.ErrBrokerNotAvailable)

	p := newMockPublisher(t, mock)
	p.PublishVerdict(sampleEvent())
	require.NoError(t, p.Close(), "a delivery failure must not surface to the caller")
}
