//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/terroir-match-service/internal/adapter/catalogfile"
	"github.com/couchcryptid/terroir-match-service/internal/adapter/kafka"
	"github.com/couchcryptid/terroir-match-service/internal/config"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/matcher"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
	"github.com/couchcryptid/terroir-match-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-match-requests"
	testSinkTopic   = "test-match-results"
)

// resultMessage holds a deserialized message read from the sink topic.
type resultMessage struct {
	Result  domain.MatchResult
	Key     string
	Headers map[string]string
}

// readResult reads a single message from the sink consumer and deserializes it.
func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) resultMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var result domain.MatchResult
	require.NoError(t, json.Unmarshal(msg.Value, &result), "unmarshal sink message")

	return resultMessage{Result: result, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func newMatcher(t *testing.T) *matcher.Matcher {
	t.Helper()
	catalog, err := catalogfile.Default()
	require.NoError(t, err)
	return matcher.New(catalog, fixtureSampler{}, nil, observability.NewMetricsForTesting(), discardLogger())
}

func requestPayload(t *testing.T, id string, lat, lon float64) []byte {
	t.Helper()
	data, err := json.Marshal(domain.MatchRequest{ID: id, Lat: lat, Lon: lon})
	require.NoError(t, err)
	return data
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) round-trip a request through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload := requestPayload(t, "req-bdx", 44.84, -0.58)
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte("req-bdx"), Value: payload}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.InboundMessage
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	msg := batch[0]
	assert.Equal(t, []byte("req-bdx"), msg.Key)
	assert.Equal(t, payload, msg.Value)
	assert.Equal(t, testSourceTopic, msg.Topic)
	require.NotNil(t, msg.Commit, "commit callback should be set")
	require.NoError(t, msg.Commit(ctx))

	result, err := pipeline.NewTransformer(newMatcher(t), discardLogger()).Transform(ctx, msg)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.MatchResult{result}))

	rm := readResult(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "req-bdx", rm.Key)
	assert.Equal(t, "Bordeaux", rm.Headers["best_region"])
	_, err = time.Parse(time.RFC3339, rm.Headers["matched_at"])
	assert.NoError(t, err, "matched_at should be valid RFC3339")

	assert.Equal(t, "req-bdx", rm.Result.RequestID)
	assert.Equal(t, "Bordeaux", rm.Result.BestRegion)
	assert.Len(t, rm.Result.Scores, 10)
	assert.Equal(t, domain.Coordinates{Lat: 44.84, Lon: -0.58}, rm.Result.Coordinates)
}

// TestPipelineSkipsUnmatchable verifies that poison pills and no-data points
// are skipped while valid requests flow through the full pipeline.
func TestPipelineSkipsUnmatchable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("ocean"), Value: requestPayload(t, "ocean", 0, -140)},
		kafkago.Message{Key: []byte("range"), Value: requestPayload(t, "range", 91, 0)},
		kafkago.Message{Key: []byte("good-1"), Value: requestPayload(t, "good-1", 44.84, -0.58)},
		kafkago.Message{Key: []byte("good-2"), Value: requestPayload(t, "good-2", 38.5, -122.4)},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(newMatcher(t), discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	keys := []string{readResult(ctx, t, consumer).Key, readResult(ctx, t, consumer).Key}
	assert.ElementsMatch(t, []string{"good-1", "good-2"}, keys)

	// No third message: the unmatchable requests were skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")

	require.NoError(t, p.CheckReadiness(ctx))
	pipelineCancel()
	require.NoError(t, <-errCh)
}
