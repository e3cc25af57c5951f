package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/durjog/durjog-map/internal/config"
	"github.com/durjog/durjog-map/internal/domain"
)

// Writer publishes cluster snapshots to the clusters topic, one message per
// view keyed by view name, so a compacted topic keeps the latest of each.
// It implements refresh.SnapshotSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured clusters topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaClustersTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// PublishSnapshot writes every view of s in a single WriteMessages call.
func (w *Writer) PublishSnapshot(ctx context.Context, s *domain.Snapshot) error {
	msgs, err := serializeSnapshot(s)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.ID, err)
	}
	w.logger.Debug("snapshot published to kafka", "snapshot_id", s.ID, "views", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// viewMessage is the payload of one view. Cluster members are left out;
// consumers get the styled markers and the diff.
type viewMessage struct {
	SnapshotID string             `json:"snapshotId"`
	Seq        uint64             `json:"seq"`
	TakenAt    time.Time          `json:"takenAt"`
	View       string             `json:"view"`
	Profile    domain.ViewProfile `json:"profile"`
	Markers    []domain.Marker    `json:"markers"`
	Diff       domain.ClusterDiff `json:"diff"`
}

// serializeSnapshot marshals each view of s into a Kafka message, in view
// name order.
func serializeSnapshot(s *domain.Snapshot) ([]kafkago.Message, error) {
	names := slices.Sorted(maps.Keys(s.Views))
	msgs := make([]kafkago.Message, 0, len(names))
	for _, name := range names {
		v := s.Views[name]
		data, err := json.Marshal(viewMessage{
			SnapshotID: s.ID,
			Seq:        s.Seq,
			TakenAt:    s.TakenAt,
			View:       name,
			Profile:    v.Profile,
			Markers:    v.Markers,
			Diff:       v.Diff,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize view %s: %w", name, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(name),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "snapshot_id", Value: []byte(s.ID)},
				{Key: "taken_at", Value: []byte(s.TakenAt.Format(time.RFC3339))},
				{Key: "seq", Value: []byte(strconv.FormatUint(s.Seq, 10))},
			},
		})
	}
	return msgs, nil
}
