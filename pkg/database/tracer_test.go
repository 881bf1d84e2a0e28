package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestTracer(slow time.Duration) (*QueryTracer, *observer.ObservedLogs, *time.Time) {
	core, logs := observer.New(zapcore.DebugLevel)
	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	qt := NewQueryTracer(slow, zap.New(core))
	qt.now = func() time.Time { return clock }
	return qt, logs, &clock
}

func TestQueryTracer_LogsSlowQuery(t *testing.T) {
	qt, logs, clock := newTestTracer(100 * time.Millisecond)

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "select * from bookings where id = $1 for update"})
	*clock = clock.Add(250 * time.Millisecond)
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	entries := logs.FilterMessage("Slow query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT", entries[0].ContextMap()["statement"])
	assert.Equal(t, 250*time.Millisecond, entries[0].ContextMap()["elapsed"])
}

func TestQueryTracer_FastQueryIsQuiet(t *testing.T) {
	qt, logs, clock := newTestTracer(100 * time.Millisecond)

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "UPDATE bookings SET cancelled = TRUE"})
	*clock = clock.Add(10 * time.Millisecond)
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	assert.Zero(t, logs.Len())
}

func TestQueryTracer_DisabledThreshold(t *testing.T) {
	qt, logs, clock := newTestTracer(0)

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	*clock = clock.Add(time.Hour)
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	assert.Zero(t, logs.Len())
}

func TestQueryTracer_EndWithoutStart(t *testing.T) {
	qt, logs, _ := newTestTracer(time.Nanosecond)

	qt.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})

	assert.Zero(t, logs.Len())
}

func TestStatementName(t *testing.T) {
	assert.Equal(t, "INSERT", statementName("\n\tinsert into users (username) values ($1)"))
	assert.Equal(t, "QUERY", statementName("   "))
}
