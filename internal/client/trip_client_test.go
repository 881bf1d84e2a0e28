package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"travel-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*TripClient, *int32) {
	t.Helper()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewTripClient(utils.TripServiceConfig{
		URL:                server.URL,
		Timeout:            timeout,
		BreakerTimeout:     time.Minute,
		BreakerMaxFailures: 2,
	}, zap.NewNop())

	return client, &hits
}

func TestTripClient_FetchTrip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/trip/trips/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":200,"data":{"id":7,"title":"Fjords","capacity":40}}`))
	}, time.Second)

	trip, err := client.FetchTrip(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), trip.ID)
	assert.Equal(t, "Fjords", trip.Title)

	capacity, err := client.Capacity(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(40), capacity)
}

func TestTripClient_CapacityMissing(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":7}}`))
	}, time.Second)

	_, err := client.Capacity(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTripClient_NotFoundKeepsBreakerClosed(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, time.Second)

	for i := 0; i < 5; i++ {
		_, err := client.FetchTrip(context.Background(), 9)
		assert.ErrorIs(t, err, ErrTripNotFound)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	assert.Equal(t, "closed", client.BreakerState())
	assert.Equal(t, int32(5), atomic.LoadInt32(hits))
}

func TestTripClient_ServerErrorsOpenBreaker(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Second)

	for i := 0; i < 2; i++ {
		_, err := client.Capacity(context.Background(), 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err := client.Capacity(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits), "open breaker must short-circuit")
}

func TestTripClient_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.FetchTrip(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTripClient_Exists(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/api/v1/trip/trips/1":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/trip/trips/2":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}, time.Second)

	ctx := context.Background()

	exists, err := client.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.Exists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = client.Exists(ctx, 3)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, exists)
}
