// Package otel provides OpenTelemetry tracing and metrics for request builders.
//
// The package provides 2 levels of telemetry:
//
// 1. Low-level telemetry
//   - It provides spans for HTTP request parts, for example: "http.getconn", "http.connect", "http.tls".
//   - It provides span and metrics for the HTTP request on the wire, span name is "http.request".
//   - Span names start with "http.", metrics names start with "grayfox.go.http." (httpMeterPrefix const).
//
// 2. High-level telemetry
//   - It provides span and metrics for each terminal call of a builder (Make or MakeForResult).
//   - Main span "grayfox.go.client.request" wraps the whole call, including reading of the response text.
//   - Metrics names start with "grayfox.go.client." (clientMeterPrefix const).
//
// For full list of metrics see the meters struct.
package otel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptrace"
	neturl "net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/grayfox/go-client/pkg/client/trace"
)

const (
	traceAppName     = "github.com/grayfox/go-client"
	attrResourceName = attribute.Key("resource.name")
	// Low-level tracing.
	httpSpanPrefix             = "http."
	httpRequestSpanName        = httpSpanPrefix + "request"
	httpGetConnSpanName        = httpSpanPrefix + "getconn"
	httpDNSSpanName            = httpSpanPrefix + "dns"
	httpConnectSpanName        = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName   = httpSpanPrefix + "tls"
	httpHeadersSpanName        = httpSpanPrefix + "headers"
	httpSendSpanName           = httpSpanPrefix + "send"
	httpReceiveSpanName        = httpSpanPrefix + "receive"
	attrNetHostName            = attribute.Key("net.host.name")
	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
	attrReadBytes              = attribute.Key("http.read_bytes")
	// High-level tracing.
	clientRequestSpanName = "grayfox.go.client.request"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates a trace.Factory which reports spans and metrics to the providers.
// Nil providers are replaced by no-op providers.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(rootCtx context.Context, method, url string) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, method, url)

		var httpCtx context.Context
		var httpRequestSpan otelTrace.Span
		var receiveSpan otelTrace.Span
		endHTTPRequest := func() {
			if receiveSpan != nil {
				receiveSpan.End()
				receiveSpan = nil
			}
			if httpRequestSpan != nil {
				httpRequestSpan.End()
				httpRequestSpan = nil
			}
		}

		// Root span and client metrics
		{
			var rootSpan otelTrace.Span
			startTime := time.Now()
			meters.client.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))

			rootCtx, rootSpan = tracer.Start(
				rootCtx,
				clientRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrResourceName.String(mustURLPathUnescape(pathOf(url))),
					attrSpanKind.String(attrSpanKindValueClient),
					attrSpanType.String(attrSpanTypeValueHTTP),
				),
				otelTrace.WithAttributes(attrs.definition...),
			)
			httpCtx = rootCtx
			tc.RequestProcessed = func(result any, err error) {
				elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)
				attrs.SetResult(result, err)

				// Metrics
				meterAttrs := append(append([]attribute.KeyValue{}, attrs.definition...), attrs.httpResponse...)
				meterAttrs = append(meterAttrs, attrs.result...)
				meters.client.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.definition...)) // same attributes as above (+1)!
				meters.client.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(meterAttrs...))

				// Tracing
				endHTTPRequest()
				rootSpan.SetAttributes(attrs.httpResponse...)
				rootSpan.SetAttributes(attrs.result...)
				if err == nil {
					rootSpan.End()
				} else {
					rootSpan.RecordError(err)
					rootSpan.SetStatus(codes.Error, err.Error())
					rootSpan.End(otelTrace.WithStackTrace(true))
				}
			}
		}

		// HTTP request on the wire
		{
			var httpRequestStart time.Time
			tc.HTTPRequestStart = func(req *http.Request) {
				httpCtx, httpRequestSpan = tracer.Start(
					rootCtx,
					httpRequestSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrSpanKind.String(attrSpanKindValueClient),
						attrSpanType.String(attrSpanTypeValueHTTP),
					),
				)

				// Inject trace headers
				if cfg.propagators != nil {
					cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
				}

				httpRequestStart = time.Now()
				attrs.SetFromRequest(req)
				httpRequestSpan.SetAttributes(attrResourceName.String(mustURLPathUnescape(req.URL.Path)))
				httpRequestSpan.SetAttributes(attrs.httpRequest...)
				httpRequestSpan.SetAttributes(attrs.httpRequestExtra...)

				meters.http.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.httpRequest...))
				if req.ContentLength > 0 {
					meters.http.requestContentLength.Add(rootCtx, req.ContentLength, otelMetric.WithAttributes(attrs.httpRequest...))
				}
			}
			tc.GotFirstResponseByte = func() {
				_, receiveSpan = tracer.Start(
					httpCtx,
					httpReceiveSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				)
			}
			tc.HTTPRequestDone = func(res *http.Response, err error) {
				elapsedTime := float64(time.Since(httpRequestStart)) / float64(time.Millisecond)
				attrs.SetFromResponse(res, err)

				meters.http.inFlight.Add(
					rootCtx,
					-1,
					otelMetric.WithAttributes(attrs.httpRequest...), // same attributes as in HTTPRequestStart!
				)
				meters.http.duration.Record(
					rootCtx,
					elapsedTime,
					otelMetric.WithAttributes(attrs.httpRequest...),
					otelMetric.WithAttributes(attrs.httpResponse...),
				)

				if httpRequestSpan == nil {
					return
				}
				httpRequestSpan.SetAttributes(attrs.httpResponse...)
				httpRequestSpan.SetAttributes(attrs.httpResponseExtra...)
				switch {
				case err != nil:
					httpRequestSpan.RecordError(err)
					httpRequestSpan.SetStatus(codes.Error, err.Error())
					endHTTPRequest()
				case res != nil && res.StatusCode >= http.StatusBadRequest:
					httpErr := fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
					httpRequestSpan.RecordError(httpErr)
					httpRequestSpan.SetStatus(codes.Error, httpErr.Error())
				}
				// Otherwise the span is extended until the response body is closed
			}
			tc.ResponseBodyClosed = func(bytes int64, err error) {
				meters.http.responseContentLength.Add(
					rootCtx,
					bytes,
					otelMetric.WithAttributes(attrs.httpRequest...),
					otelMetric.WithAttributes(attrs.httpResponse...),
				)
				if receiveSpan != nil {
					receiveSpan.SetAttributes(attrReadBytes.Int64(bytes))
					if err != nil {
						receiveSpan.RecordError(err)
						receiveSpan.SetStatus(codes.Error, err.Error())
					}
				}
				if httpRequestSpan != nil {
					httpRequestSpan.SetAttributes(attrReadBytes.Int64(bytes))
				}
				endHTTPRequest()
			}
		}

		// Low-level tracing, hooks of the net/http/httptrace package
		// httptrace: DNS
		{
			var dnsSpan otelTrace.Span
			tc.DNSStart = func(info httptrace.DNSStartInfo) {
				_, dnsSpan = tracer.Start(
					httpCtx,
					httpDNSSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(attrNetHostName.String(info.Host)),
				)
			}
			tc.DNSDone = func(info httptrace.DNSDoneInfo) {
				if dnsSpan == nil {
					return
				}
				var addrs []string
				for _, netAddr := range info.Addrs {
					addrs = append(addrs, netAddr.String())
				}
				dnsSpan.SetAttributes(attrDNSAddresses.StringSlice(addrs))
				if info.Err != nil {
					dnsSpan.RecordError(info.Err)
					dnsSpan.SetStatus(codes.Error, info.Err.Error())
				}
				dnsSpan.End()
				dnsSpan = nil
			}
		}
		// httptrace: Get connection
		{
			var getConnSpan otelTrace.Span
			tc.GetConn = func(host string) {
				_, getConnSpan = tracer.Start(
					httpCtx,
					httpGetConnSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(attrNetHostName.String(host)),
				)
			}
			tc.GotConn = func(info httptrace.GotConnInfo) {
				if getConnSpan == nil {
					return
				}
				getConnSpan.SetAttributes(
					attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
					attrLocalAddr.String(info.Conn.LocalAddr().String()),
					attrConnectionReused.Bool(info.Reused),
				)
				getConnSpan.End()
				getConnSpan = nil
			}
		}
		// httptrace: Connect
		{
			var connectSpan otelTrace.Span
			tc.ConnectStart = func(network, addr string) {
				_, connectSpan = tracer.Start(
					httpCtx,
					httpConnectSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrRemoteAddr.String(addr),
						attrConnectionStartNetwork.String(network),
					),
				)
			}
			tc.ConnectDone = func(network, addr string, err error) {
				if connectSpan == nil {
					return
				}
				connectSpan.SetAttributes(
					attrConnectionDoneAddr.String(addr),
					attrConnectionDoneNetwork.String(network),
				)
				if err != nil {
					connectSpan.RecordError(err)
					connectSpan.SetStatus(codes.Error, err.Error())
				}
				connectSpan.End()
				connectSpan = nil
			}
		}
		// httptrace: TLS handshake
		{
			var tlsSpan otelTrace.Span
			tc.TLSHandshakeStart = func() {
				_, tlsSpan = tracer.Start(
					httpCtx,
					httpTLSHandshakeSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				)
			}
			tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
				if tlsSpan == nil {
					return
				}
				if err != nil {
					tlsSpan.RecordError(err)
					tlsSpan.SetStatus(codes.Error, err.Error())
				}
				tlsSpan.End()
				tlsSpan = nil
			}
		}
		// httptrace: headers, send
		{
			var headersSpan otelTrace.Span
			var sendSpan otelTrace.Span
			tc.WroteHeaderField = func(_ string, _ []string) {
				// Start headers span at first header
				if headersSpan == nil {
					_, headersSpan = tracer.Start(
						httpCtx,
						httpHeadersSpanName,
						otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					)
				}
			}
			tc.WroteHeaders = func() {
				if headersSpan != nil {
					headersSpan.End()
					headersSpan = nil
				}
				_, sendSpan = tracer.Start(
					httpCtx,
					httpSendSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				)
			}
			tc.WroteRequest = func(info httptrace.WroteRequestInfo) {
				if sendSpan == nil {
					return
				}
				if info.Err != nil {
					sendSpan.RecordError(info.Err)
					sendSpan.SetStatus(codes.Error, info.Err.Error())
				}
				sendSpan.End()
				sendSpan = nil
			}
		}

		return rootCtx, tc
	}
}

func pathOf(rawURL string) string {
	if u, err := neturl.Parse(rawURL); err == nil {
		return u.Path
	}
	return rawURL
}
