package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"travel-booking/pkg/utils"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tripPath = "/api/v1/trip/trips/"

var (
	// ErrTripNotFound is the Trip service's definite answer that the trip does not exist.
	ErrTripNotFound = errors.New("trip not found")
	// ErrUnavailable covers every other outcome: transport errors, timeouts,
	// unexpected statuses, undecodable bodies and an open breaker.
	ErrUnavailable = errors.New("trip service unavailable")
)

// TripData is the part of the Trip service representation the booking side reads.
type TripData struct {
	ID          int64  `json:"id"`
	Title       string `json:"title,omitempty"`
	Location    string `json:"location,omitempty"`
	Capacity    *int64 `json:"capacity"`
	Description string `json:"description,omitempty"`
}

type wrappedResponse struct {
	Data *TripData `json:"data"`
}

type TripClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	log     *zap.Logger
}

func NewTripClient(cfg utils.TripServiceConfig, log *zap.Logger) *TripClient {
	log = log.With(zap.String("client", "trip"))

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "trip-service",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= maxFailures {
				return true
			}
			return counts.Requests >= 10 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		// 404 is an answer, not a fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrTripNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &TripClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		cb:      gobreaker.NewCircuitBreaker(settings),
		tracer:  otel.Tracer("travel-booking/client"),
		log:     log,
	}
}

// BreakerState returns closed, open or half-open.
func (c *TripClient) BreakerState() string {
	return c.cb.State().String()
}

// FetchTrip reads the trip representation with GET.
func (c *TripClient) FetchTrip(ctx context.Context, id int64) (*TripData, error) {
	ctx, span := c.tracer.Start(ctx, "TripClient.FetchTrip",
		trace.WithAttributes(attribute.Int64("trip.id", id)))
	defer span.End()

	result, err := c.cb.Execute(func() (interface{}, error) {
		body, err := c.do(ctx, http.MethodGet, id)
		if err != nil {
			return nil, err
		}

		var wrapped wrappedResponse
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode trip %d: %w", id, err)
		}
		if wrapped.Data == nil {
			return nil, fmt.Errorf("decode trip %d: empty data", id)
		}
		return wrapped.Data, nil
	})
	if err != nil {
		return nil, c.fail(span, id, err)
	}

	return result.(*TripData), nil
}

// Capacity returns the trip's configured capacity. A trip without a capacity
// is treated as unavailable so callers fail closed.
func (c *TripClient) Capacity(ctx context.Context, id int64) (int64, error) {
	trip, err := c.FetchTrip(ctx, id)
	if err != nil {
		return 0, err
	}
	if trip.Capacity == nil {
		return 0, fmt.Errorf("%w: trip %d has no capacity", ErrUnavailable, id)
	}
	return *trip.Capacity, nil
}

// Exists probes the trip with HEAD. Only a 404 yields false without error.
func (c *TripClient) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "TripClient.Exists",
		trace.WithAttributes(attribute.Int64("trip.id", id)))
	defer span.End()

	_, err := c.cb.Execute(func() (interface{}, error) {
		_, err := c.do(ctx, http.MethodHead, id)
		return nil, err
	})
	if errors.Is(err, ErrTripNotFound) {
		return false, nil
	}
	if err != nil {
		return false, c.fail(span, id, err)
	}

	return true, nil
}

func (c *TripClient) do(ctx context.Context, method string, id int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s%s%d", c.baseURL, tripPath, id)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTripNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read trip %d body: %w", id, err)
	}
	return body, nil
}

func (c *TripClient) fail(span trace.Span, id int64, err error) error {
	if errors.Is(err, ErrTripNotFound) {
		span.SetAttributes(attribute.Bool("trip.found", false))
		return ErrTripNotFound
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.log.Error("Failed to reach Trip service",
		zap.Error(err),
		zap.Int64("trip_id", id),
		zap.String("breaker", c.cb.State().String()),
	)
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
