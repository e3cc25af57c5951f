package kafka

import (
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durjog/durjog-map/internal/domain"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"type":"flood"}`),
		Topic:     "emergency-reports",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("sms-gateway")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"type":"flood"}`, string(raw.Value))
	assert.Equal(t, "emergency-reports", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "sms-gateway", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeSnapshot(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC)
	profiles := domain.DefaultProfiles()
	snap := &domain.Snapshot{
		ID:      "6f1c7f0e-3b0e-4b7b-9a47-0c8c0f3d2a11",
		Seq:     7,
		TakenAt: now,
		Views: map[string]domain.ViewSnapshot{
			domain.MarkersView: {
				Profile: profiles[1],
				Clusters: []domain.Cluster{{Key: "23.7925_90.4155|flood", Count: 2, Members: []domain.EmergencyReport{
					{ID: "r1", Description: "private details"},
				}}},
				Markers: []domain.Marker{{Key: "23.7925_90.4155|flood", Count: 2, Color: "#ff0000"}},
				Diff:    domain.ClusterDiff{Added: []string{"23.7925_90.4155|flood"}, Removed: []string{}, Changed: []string{}},
			},
			domain.HeatmapView: {Profile: profiles[0]},
		},
	}

	msgs, err := serializeSnapshot(snap)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, []byte(domain.HeatmapView), msgs[0].Key)
	assert.Equal(t, []byte(domain.MarkersView), msgs[1].Key)

	m := msgs[1]
	require.Len(t, m.Headers, 3)
	assert.Equal(t, "snapshot_id", m.Headers[0].Key)
	assert.Equal(t, []byte(snap.ID), m.Headers[0].Value)
	assert.Equal(t, "taken_at", m.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), m.Headers[1].Value)
	assert.Equal(t, []byte("7"), m.Headers[2].Value)

	var payload viewMessage
	require.NoError(t, json.Unmarshal(m.Value, &payload))
	assert.Equal(t, domain.MarkersView, payload.View)
	assert.Equal(t, uint64(7), payload.Seq)
	require.Len(t, payload.Markers, 1)
	assert.Equal(t, "#ff0000", payload.Markers[0].Color)
	assert.Equal(t, []string{"23.7925_90.4155|flood"}, payload.Diff.Added)
	assert.NotContains(t, string(m.Value), "private details", "members are not published")
}

func TestSerializeSnapshot_NoViews(t *testing.T) {
	msgs, err := serializeSnapshot(&domain.Snapshot{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
