package opentelemetry

import (
	"context"

	"github.com/coderi421/relm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/coderi421/relm/middlewares/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (m *MiddlewareBuilder) Build() relm.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next relm.Handler) relm.Handler {
		return func(ctx context.Context, qc *relm.QueryContext) *relm.QueryResult {
			table := "unknown"
			if qc.Model != nil {
				table = qc.Model.Name()
			}
			spanCtx, span := m.Tracer.Start(ctx, qc.Type+" "+table)
			defer span.End()

			span.SetAttributes(attribute.String("db.operation", qc.Type))
			span.SetAttributes(attribute.String("db.sql.table", table))
			span.SetAttributes(attribute.String("db.statement", qc.Query.SQL))

			res := next(spanCtx, qc)
			if res.Err != nil {
				span.RecordError(res.Err)
			}
			return res
		}
	}
}
