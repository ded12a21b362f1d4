// Package command turns a command name plus arguments into exactly one
// request/response exchange on a device session.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/botectl/internal/observability"
	"github.com/danmuck/botectl/internal/protocol/frame"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/danmuck/botectl/command"

// RoundTripper carries one encoded request and returns one response payload.
type RoundTripper interface {
	RoundTrip(ctx context.Context, request []byte) ([]byte, error)
}

type Invoker struct {
	rt     RoundTripper
	tracer trace.Tracer
}

type Option func(*Invoker)

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(i *Invoker) {
		i.tracer = t
	}
}

func New(rt RoundTripper, opts ...Option) *Invoker {
	inv := &Invoker{rt: rt}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.tracer == nil {
		inv.tracer = otel.Tracer(tracerName)
	}
	return inv
}

// Invoke sends name with args and returns the trimmed text response.
func (i *Invoker) Invoke(ctx context.Context, name string, args ...any) (string, error) {
	raw, err := i.InvokeRaw(ctx, name, args...)
	if err != nil {
		return "", err
	}
	return frame.DecodePayload(raw), nil
}

// InvokeRaw is Invoke without payload decoding, for binary responses.
func (i *Invoker) InvokeRaw(ctx context.Context, name string, args ...any) ([]byte, error) {
	req, err := frame.EncodeRequest(name, args...)
	if err != nil {
		observability.RecordInvoke(name, "encoding_error", 0)
		return nil, err
	}
	return i.send(ctx, name, req)
}

// InvokeFile sends data verbatim as the third argument after remotePath.
func (i *Invoker) InvokeFile(ctx context.Context, name, remotePath string, data []byte) (string, error) {
	req, err := frame.EncodeFile(name, remotePath, data)
	if err != nil {
		return "", err
	}
	raw, err := i.send(ctx, name, req)
	if err != nil {
		return "", err
	}
	return frame.DecodePayload(raw), nil
}

func (i *Invoker) send(ctx context.Context, name string, req []byte) ([]byte, error) {
	ctx, span := i.tracer.Start(ctx, "botectl.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("botectl.command", name),
			attribute.Int("botectl.request_bytes", len(req)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := i.rt.RoundTrip(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordInvoke(name, outcome(err), elapsed)
		return nil, err
	}
	span.SetAttributes(attribute.Int("botectl.response_bytes", len(resp)))
	span.SetStatus(codes.Ok, "")
	observability.RecordInvoke(name, "ok", elapsed)
	return resp, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	default:
		return "transport_error"
	}
}
