package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wildfire-globe-service/internal/config"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
)

// Publisher produces one message per hotspot to a Kafka topic after each
// fire overlay load. It implements pipeline.HotspotSink.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured fire topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFireTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) Name() string { return "kafka" }

// Publish serializes every record in the snapshot and writes them in a
// single WriteMessages call.
func (p *Publisher) Publish(ctx context.Context, snap domain.FireSnapshot) error {
	if len(snap.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Records))
	for i := range snap.Records {
		msg, err := serializeToMessage(snap.Records[i], snap.FetchedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d hotspots: %w", len(msgs), err)
	}
	p.logger.Debug("hotspots published", "topic", p.writer.Topic, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// hotspotKey identifies a detection so repeated loads of the same hotspot
// land on the same partition.
func hotspotKey(r domain.FireRecord) string {
	return fmt.Sprintf("%s|%s|%s|%.5f,%.5f", r.Source, r.Date, r.Time, r.Lat, r.Lon)
}

// serializeToMessage marshals a FireRecord into a Kafka message.
func serializeToMessage(r domain.FireRecord, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize hotspot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(hotspotKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(r.Source)},
			{Key: "fetched_at", Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
