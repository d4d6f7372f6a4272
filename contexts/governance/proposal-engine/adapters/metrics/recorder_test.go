package metricsadapter

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fangov/contexts/governance/proposal-engine/domain/entities"
)

func TestRecorderCountsTransitionsAndVotes(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder, err := NewRecorder(registry)
	require.NoError(t, err)

	recorder.ObserveTransition(entities.ProposalStatusDraft, entities.ProposalStatusOpen)
	recorder.ObserveTransition(entities.ProposalStatusDraft, entities.ProposalStatusOpen)
	recorder.ObserveVote("accepted")
	recorder.ObserveVote("duplicate")
	recorder.ObserveVote("accepted")
	recorder.ObserveTally(true, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.transitions.WithLabelValues("draft", "open")))
	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.votes.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.votes.WithLabelValues("duplicate")))
	assert.Equal(t, 1, testutil.CollectAndCount(recorder.tally))
}

func TestRecorderRejectsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewRecorder(registry)
	require.NoError(t, err)

	_, err = NewRecorder(registry)
	assert.Error(t, err)
}
