package metricsadapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
)

const namespace = "fangov_proposal_engine"

// Recorder exports proposal lifecycle and vote admission counters.
type Recorder struct {
	transitions *prometheus.CounterVec
	votes       *prometheus.CounterVec
	tally       *prometheus.HistogramVec
}

func NewRecorder(registerer prometheus.Registerer) (*Recorder, error) {
	recorder := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed proposal status transitions.",
		}, []string{"from", "to"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote admission attempts by outcome.",
		}, []string{"outcome"}),
		tally: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tally_duration_seconds",
			Help:      "Time spent producing a result snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"frozen"}),
	}
	for _, collector := range []prometheus.Collector{recorder.transitions, recorder.votes, recorder.tally} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return recorder, nil
}

func (r *Recorder) ObserveTransition(from entities.ProposalStatus, to entities.ProposalStatus) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) ObserveVote(outcome string) {
	r.votes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveTally(frozen bool, duration time.Duration) {
	label := "false"
	if frozen {
		label = "true"
	}
	r.tally.WithLabelValues(label).Observe(duration.Seconds())
}

var _ ports.Metrics = (*Recorder)(nil)
