package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("travel-booking/database")

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
	span  trace.Span
}

// QueryTracer opens a span per statement and logs statements slower than
// the threshold. A zero threshold turns slow-query logging off.
type QueryTracer struct {
	slow time.Duration
	log  *zap.Logger
	now  func() time.Time
}

func NewQueryTracer(slow time.Duration, log *zap.Logger) *QueryTracer {
	return &QueryTracer{
		slow: slow,
		log:  log.With(zap.String("component", "pgx")),
		now:  time.Now,
	}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := tracer.Start(ctx, "db "+statementName(data.SQL),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", data.SQL),
		),
	)
	return context.WithValue(ctx, queryStartKey{}, &queryStart{sql: data.SQL, start: t.now(), span: span})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(*queryStart)
	if !ok {
		return
	}
	defer qs.span.End()

	if data.Err != nil {
		qs.span.RecordError(data.Err)
		qs.span.SetStatus(codes.Error, data.Err.Error())
	} else {
		qs.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}

	elapsed := t.now().Sub(qs.start)
	if t.slow > 0 && elapsed >= t.slow {
		t.log.Warn("Slow query",
			zap.String("statement", statementName(qs.sql)),
			zap.Duration("elapsed", elapsed),
			zap.Error(data.Err))
	}
}

// statementName is the leading SQL keyword, e.g. SELECT or UPDATE.
func statementName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "QUERY"
	}
	return strings.ToUpper(fields[0])
}
