package database

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
)

func TestDefaultMongoConfig(t *testing.T) {
	cfg := DefaultMongoConfig()
	assert.Equal(t, "mongodb://localhost:27017/reviewDb", cfg.URI)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)

	name, err := cfg.DatabaseName()
	require.NoError(t, err)
	assert.Equal(t, "reviewDb", name)
}

func TestMongoConfig_DatabaseName(t *testing.T) {
	tests := []struct {
		name    string
		cfg     MongoConfig
		want    string
		wantErr bool
	}{
		{name: "explicit wins", cfg: MongoConfig{URI: "mongodb://h:27017/reviewDb", Database: "other"}, want: "other"},
		{name: "from uri", cfg: MongoConfig{URI: "mongodb://user:pw@h1:27017,h2:27017/reviews_test?replicaSet=rs0"}, want: "reviews_test"},
		{name: "no database", cfg: MongoConfig{URI: "mongodb://h:27017"}, wantErr: true},
		{name: "bad uri", cfg: MongoConfig{URI: "postgres://h/db"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DatabaseName()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedactURI(t *testing.T) {
	assert.Equal(t, "mongodb://***@db:27017/reviewDb", redactURI("mongodb://admin:s3cret@db:27017/reviewDb"))
	assert.Equal(t, "mongodb://localhost:27017/reviewDb", redactURI("mongodb://localhost:27017/reviewDb"))
	assert.Equal(t, "not a uri", redactURI("not a uri"))
}

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := defaultRetryBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitterFraction))
		hi := time.Duration(float64(base) * (1 + retryJitterFraction))

		for range 20 {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
	assert.LessOrEqual(t, retryBackoff(-1), time.Duration(float64(defaultRetryBaseWait)*(1+retryJitterFraction)))
}

func TestPoolMonitor_TracksConnections(t *testing.T) {
	const svc = "pool-monitor-test"
	mon := NewPoolMonitor(svc)

	mon.Event(&event.PoolEvent{Type: event.ConnectionCreated})
	mon.Event(&event.PoolEvent{Type: event.ConnectionCreated})
	mon.Event(&event.PoolEvent{Type: event.GetSucceeded})
	mon.Event(&event.PoolEvent{Type: event.GetSucceeded})
	mon.Event(&event.PoolEvent{Type: event.ConnectionReturned})
	mon.Event(&event.PoolEvent{Type: event.ConnectionClosed})
	mon.Event(&event.PoolEvent{Type: event.GetFailed, Reason: "timeout"})
	mon.Event(&event.PoolEvent{Type: event.PoolCleared})

	assert.Equal(t, 1.0, testutil.ToFloat64(poolConnectionsOpen.WithLabelValues(svc)))
	assert.Equal(t, 1.0, testutil.ToFloat64(poolConnectionsInUse.WithLabelValues(svc)))
	assert.Equal(t, 1.0, testutil.ToFloat64(poolCheckoutFailures.WithLabelValues(svc, "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poolCleared.WithLabelValues(svc)))
}
