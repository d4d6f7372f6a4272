package natsadapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"fangov/contexts/governance/proposal-engine/ports"
)

const (
	DefaultStreamName    = "GOVERNANCE"
	DefaultSubjectPrefix = "governance"
)

// JetStreamPublisher publishes events to "<prefix>.<topic>". The event id is
// sent as the JetStream message id, so relay retries inside the stream's
// duplicate window are dropped by the server.
type JetStreamPublisher struct {
	js     jetstream.JetStream
	prefix string
}

func NewJetStreamPublisher(js jetstream.JetStream, prefix string) *JetStreamPublisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &JetStreamPublisher{js: js, prefix: prefix}
}

func (p *JetStreamPublisher) Subject(topic string) string {
	return p.prefix + "." + topic
}

func (p *JetStreamPublisher) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.Subject(topic))
	msg.Data = payload
	msg.Header.Set("Event-Type", event.EventType)
	msg.Header.Set("Partition-Key", event.PartitionKey)
	_, err = p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.EventID))
	return err
}

// EnsureStream creates or updates the stream that captures every subject
// under prefix.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name string, prefix string) (jetstream.Stream, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultStreamName
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{prefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
}

var _ ports.EventPublisher = (*JetStreamPublisher)(nil)
