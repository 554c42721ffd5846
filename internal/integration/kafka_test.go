//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/emwin-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/emwin-ingest/internal/adapter/memstore"
	"github.com/couchcryptid/emwin-ingest/internal/config"
	"github.com/couchcryptid/emwin-ingest/internal/domain"
	"github.com/couchcryptid/emwin-ingest/internal/observability"
	"github.com/couchcryptid/emwin-ingest/internal/pipeline"
)

const testTopic = "test-bulletins"

// TestPipelinePublishesCommittedBulletins runs an ingestion with the Kafka
// publisher and reads the announcements back from the topic.
func TestPipelinePublishesCommittedBulletins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	pub := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	dir := t.TempDir()
	names := []string{
		bulletinName("KWBC", "STPTPTCN", 1),
		bulletinName("KOKX", "AFDOKX", 2),
	}
	writeFiles(t, dir, names...)

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(memstore.New(), pipeline.Settings{BatchSize: 10, BatchRetryDepth: 1}, discardLogger(), metrics,
		pipeline.WithPublisher(pub))
	report, err := p.Run(ctx, pipeline.Options{Dir: dir, PreviewLength: 100, ProgressEvery: 100})
	require.NoError(t, err)
	require.Equal(t, 2, report.Added)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := make(map[string]domain.BulletinFile)
	for range names {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from bulletin topic")

		var b domain.BulletinFile
		require.NoError(t, json.Unmarshal(msg.Value, &b))
		assert.Equal(t, string(msg.Key), b.Filename)
		got[b.Filename] = b
	}

	for _, n := range names {
		require.Contains(t, got, n)
		assert.Equal(t, "WWUS81 KWBC 170115\nSPOT FORECAST\n", got[n].Preview)
		assert.False(t, got[n].ReadFlag)
	}
}
