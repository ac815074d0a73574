// Package remote holds the HTTP accessors for the Cart and Inventory
// services. Every call runs through a resilience.Policy and forwards the
// caller's bearer token and trace context.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/resilience"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// StatusError is a non-2xx response from a remote.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// client is the transport shared by both accessors.
type client struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	policy  *resilience.Policy
	tracer  trace.Tracer
}

func newClient(log *slog.Logger, hc *http.Client, baseURL string, policy *resilience.Policy) client {
	if hc == nil {
		hc = &http.Client{}
	}
	return client{
		log:     log.With("remote", policy.Name()),
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		policy:  policy,
		tracer:  otel.Tracer("order-remote"),
	}
}

// call sends one request through the policy and decodes a 2xx body into out.
// 4xx responses are permanent and never retried; 5xx and transport errors
// are retried. An undecodable 2xx body is not retried but counts as a
// breaker failure.
func (c client) call(ctx context.Context, p auth.Principal, op, method, path string, in, out any) error {
	ctx, span := c.tracer.Start(ctx, c.policy.Name()+"."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s body: %w", op, err)
		}
	}

	err := c.policy.Do(ctx, op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if h := p.BearerHeader(); h != "" {
			req.Header.Set("Authorization", h)
		}
		tracing.InjectHTTP(ctx, req.Header)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			serr := &StatusError{Method: method, URL: req.URL.String(), Status: resp.StatusCode, Body: string(msg)}
			if resp.StatusCode < 500 {
				return resilience.Permanent(serr)
			}
			return serr
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resilience.Abort(fmt.Errorf("decode %s response: %w", op, err))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
	}
	return err
}
