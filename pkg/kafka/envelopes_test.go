package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutopilotNotification_RoundTrips(t *testing.T) {
	raw := `{"phaseTypeName":"Review","state":"End","projectId":123}`
	var n AutopilotNotification
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	assert.Equal(t, "Review", n.PhaseTypeName)
	assert.Equal(t, "End", n.State)
	assert.Equal(t, int64(123), n.ProjectID)
}

func TestRatingServiceEvent_RoundTrips(t *testing.T) {
	raw := `{"originator":"rating.calculation.service","event":"RATINGS_CALCULATION","status":"SUCCESS","roundId":456}`
	var e RatingServiceEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, RatingServiceOriginator, e.Originator)
	assert.Equal(t, EventRatingsCalculation, e.Event)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, int64(456), e.RoundID)
}

func TestRoundRatedEvent_OmitsEmptyChallengeID(t *testing.T) {
	event := RoundRatedEvent{EventID: "evt-1", RoundID: 10, RatedCount: 5}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	_, present := decoded["challengeId"]
	assert.False(t, present)
	assert.Equal(t, float64(10), decoded["roundId"])
	assert.Equal(t, float64(5), decoded["ratedCount"])
}

func TestDeadLetterEnvelope_RoundTrips(t *testing.T) {
	envelope := DeadLetterEnvelope{SourceTopic: "autopilot.notifications", Reason: "decode failed", Payload: []byte(`{"bad":`)}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)

	var decoded DeadLetterEnvelope
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, envelope, decoded)
}
