package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxTracedSQL = 300

type querySpanKey struct{}

// PGXTracer implements pgx.QueryTracer, opening a span per SQL statement.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	stmt := strings.TrimSpace(data.SQL)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", clipStatement(stmt)),
	}
	name := "pgx.query"
	if fields := strings.Fields(stmt); len(fields) > 0 {
		op := strings.ToUpper(fields[0])
		attrs = append(attrs, attribute.String("db.operation", op))
		name = "pgx." + strings.ToLower(op)
	}
	ctx, span := otel.Tracer("db.pgx").Start(ctx, name, trace.WithAttributes(attrs...))
	return context.WithValue(ctx, querySpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
	span.End()
}

func clipStatement(stmt string) string {
	if len(stmt) > maxTracedSQL {
		return stmt[:maxTracedSQL] + "..."
	}
	return stmt
}
