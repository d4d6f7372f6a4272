package application

import (
	"time"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
)

type noopMetrics struct{}

func (noopMetrics) ObserveTransition(entities.ProposalStatus, entities.ProposalStatus) {}
func (noopMetrics) ObserveVote(string) {}
func (noopMetrics) ObserveTally(bool, time.Duration) {}

func ResolveMetrics(metrics ports.Metrics) ports.Metrics {
	if metrics == nil {
		return noopMetrics{}
	}
	return metrics
}
