package webhdfs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tonimelisma/webhdfs-go/pkg/webhdfs"

// Span attribute keys.
const (
	attrOperation  = "fs.operation"
	attrPath       = "fs.path"
	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrRequestID  = "webhdfs.request_id"
	attrBytes      = "fs.bytes_read"
)

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return tp.Tracer(instrumentationName)
}

// startSpan opens a client span named after the WebHDFS operation.
func (c *Client) startSpan(ctx context.Context, r *Request, method, reqID string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "webhdfs."+r.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrOperation, r.Op),
			attribute.String(attrPath, r.Path),
			attribute.String(attrMethod, method),
			attribute.String(attrRequestID, reqID),
		),
	)
}

// endSpan records the result of a request on span. The caller still ends it.
func endSpan(span trace.Span, resp *Response, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return
	}

	span.SetAttributes(
		attribute.Int(attrStatusCode, resp.StatusCode),
		attribute.Int(attrBytes, len(resp.Body)),
	)
}
