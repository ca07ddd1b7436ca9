package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/aircast/aircast/internal/audit"
	"github.com/aircast/aircast/internal/worker"
)

const (
	testProject      = "aircast-test"
	testTopic        = "projects/aircast-test/topics/pm25-forecasts"
	testSubscription = "projects/aircast-test/subscriptions/pm25-forecasts-audit"
)

func sampleEvent() audit.ForecastEvent {
	avg := 40.0
	return audit.ForecastEvent{
		RequestID:         "req-7",
		Lat:               24,
		Lon:               26,
		CellLat:           25,
		CellLon:           25,
		GridSize:          10,
		Year:              2024,
		Month:             6,
		LivePM25:          50,
		HistoricalAverage: &avg,
		Anomaly:           10,
		BasePrediction:    50,
		FinalPrediction:   60,
		ComputedAt:        time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

type recordingStore struct {
	mu     sync.Mutex
	events map[string]audit.ForecastEvent
	err    error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{events: make(map[string]audit.ForecastEvent)}
}

func (s *recordingStore) SaveForecast(_ context.Context, messageID string, event audit.ForecastEvent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[messageID] = event
	return nil
}

func (s *recordingStore) get(id string) (audit.ForecastEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

// startConsumer wires a consumer to an in-memory Pub/Sub server and runs it
// until the test ends.
func startConsumer(t *testing.T, store worker.EventStore) (*pstest.Server, *worker.Consumer) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, testProject, option.WithGRPCConn(conn))
	require.NoError(t, err)

	_, err = client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: testTopic})
	require.NoError(t, err)
	_, err = client.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:  testSubscription,
		Topic: testTopic,
	})
	require.NoError(t, err)

	consumer := worker.NewConsumerWithClient(client, worker.ConsumerConfig{
		SubscriptionName: "pm25-forecasts-audit",
		Store:            store,
		Logger:           zerolog.Nop(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Start(runCtx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("consumer did not stop")
		}
		_ = consumer.Close()
	})

	return srv, consumer
}

func TestConsumer_StoresForecastEvents(t *testing.T) {
	store := newRecordingStore()
	srv, consumer := startConsumer(t, store)

	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	id := srv.Publish(testTopic, data, map[string]string{"event_type": audit.EventTypeForecast})

	require.Eventually(t, func() bool {
		_, ok := store.get(id)
		return ok
	}, 10*time.Second, 20*time.Millisecond)

	event, _ := store.get(id)
	assert.Equal(t, "req-7", event.RequestID)
	assert.Equal(t, 60.0, event.FinalPrediction)
	require.NotNil(t, event.HistoricalAverage)
	assert.Equal(t, 40.0, *event.HistoricalAverage)

	require.Eventually(t, func() bool { return srv.Message(id).Acks > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(1), consumer.Stats().Stored)
}

func TestConsumer_DropsInvalidEvents(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		attrs map[string]string
	}{
		{name: "malformed json", data: `{"lat":`},
		{name: "missing computed_at", data: `{"lat":1,"lon":2}`},
		{name: "foreign event type", data: `{"computed_at":"2024-06-15T12:00:00Z"}`, attrs: map[string]string{"event_type": "route.computed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			srv, consumer := startConsumer(t, store)

			id := srv.Publish(testTopic, []byte(tt.data), tt.attrs)

			require.Eventually(t, func() bool { return srv.Message(id).Acks > 0 }, 10*time.Second, 20*time.Millisecond)
			_, stored := store.get(id)
			assert.False(t, stored)
			assert.Equal(t, int64(1), consumer.Stats().Rejected)
		})
	}
}

func TestConsumer_StoreFailureNacks(t *testing.T) {
	store := newRecordingStore()
	store.err = errors.New("database down")
	srv, consumer := startConsumer(t, store)

	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	id := srv.Publish(testTopic, data, nil)

	require.Eventually(t, func() bool { return consumer.Stats().Failed >= 1 }, 10*time.Second, 20*time.Millisecond)
	assert.Zero(t, srv.Message(id).Acks)
	assert.Zero(t, consumer.Stats().Stored)
}
