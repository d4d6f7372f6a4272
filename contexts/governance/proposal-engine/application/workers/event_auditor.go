package workers

import (
	"context"
	"log/slog"
	"strings"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/ports"
)

const defaultAuditConsumerGroup = "proposal-engine-audit"

// AuditedTopics lists every event type the proposal engine emits.
var AuditedTopics = []string{
	ports.EventProposalCreated,
	ports.EventProposalOpened,
	ports.EventProposalClosed,
	ports.EventProposalFinalized,
	ports.EventVoteCast,
}

// EventAuditor writes one structured log line per relayed event. The worker
// runs it on the in-process bus so events relayed without a broker still
// reach a consumer.
type EventAuditor struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Logger        *slog.Logger
}

func (a EventAuditor) Start(ctx context.Context) error {
	logger := application.ResolveLogger(a.Logger)
	group := strings.TrimSpace(a.ConsumerGroup)
	if group == "" {
		group = defaultAuditConsumerGroup
	}
	for _, topic := range AuditedTopics {
		if err := a.Subscriber.Subscribe(ctx, topic, group, a.Handle); err != nil {
			logger.Error("event auditor subscribe failed",
				"event", "proposal_event_auditor_subscribe_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("event auditor subscribed",
		"event", "proposal_event_auditor_started",
		"module", application.ModuleName,
		"layer", "worker",
		"consumer_group", group,
		"topics", len(AuditedTopics),
	)
	return nil
}

func (a EventAuditor) Handle(_ context.Context, event ports.EventEnvelope) error {
	application.ResolveLogger(a.Logger).Info("proposal event audited",
		"event", "proposal_event_audited",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
