//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the duration of the test and
// returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("terroir-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// fixtureSampler returns a fixed Bordeaux-like sample everywhere except the
// open ocean west of 100°W, which has no data.
type fixtureSampler struct{}

func (fixtureSampler) SamplePoint(_ context.Context, at domain.Coordinates) (domain.PointSample, error) {
	if at.Lon < -100 && at.Lat < 30 {
		return domain.PointSample{}, domain.ErrNoData
	}
	uniform := func(v float64) domain.SoilSample {
		s := make(domain.SoilSample, len(domain.DepthBands))
		for _, b := range domain.DepthBands {
			s[b] = v
		}
		return s
	}
	return domain.PointSample{
		Sand:          uniform(0.307),
		Clay:          uniform(0.279),
		OrganicCarbon: uniform(0.012),
		Elevation:     50,
		MeanTemp:      13.5,
		DiurnalRange:  10,
	}, nil
}
