package otel

import otelMetric "go.opentelemetry.io/otel/metric"

const (
	meterPrefix       = "grayfox.go."
	clientMeterPrefix = meterPrefix + "client."
	httpMeterPrefix   = meterPrefix + "http."
)

type meters struct {
	client clientMeters
	http   httpMeters
}

// clientMeters track each terminal call of a builder.
type clientMeters struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

// httpMeters track the HTTP request on the wire.
type httpMeters struct {
	inFlight              otelMetric.Int64UpDownCounter
	duration              otelMetric.Float64Histogram
	requestContentLength  otelMetric.Int64Counter
	responseContentLength otelMetric.Int64Counter
}

func newMeters(meter otelMetric.Meter) *meters {
	return &meters{
		client: clientMeters{
			inFlight: upDownCounter(meter, clientMeterPrefix+"request.in_flight", "HTTP client: in flight requests."),
			duration: histogram(meter, clientMeterPrefix+"request.duration", "HTTP client: requests duration.", "ms"),
		},
		http: httpMeters{
			inFlight:              upDownCounter(meter, httpMeterPrefix+"request.in_flight", "HTTP request: in flight requests."),
			duration:              histogram(meter, httpMeterPrefix+"request.duration", "HTTP request: response headers received duration.", "ms"),
			requestContentLength:  counter(meter, httpMeterPrefix+"request.content_length", "HTTP request: request body size.", "By"),
			responseContentLength: counter(meter, httpMeterPrefix+"response.content_length", "HTTP request: read response body size.", "By"),
		},
	}
}

func upDownCounter(meter otelMetric.Meter, name, desc string) otelMetric.Int64UpDownCounter {
	return mustInstrument(meter.Int64UpDownCounter(name, otelMetric.WithDescription(desc)))
}

func counter(meter otelMetric.Meter, name, desc, unit string) otelMetric.Int64Counter {
	return mustInstrument(meter.Int64Counter(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func histogram(meter otelMetric.Meter, name, desc, unit string) otelMetric.Float64Histogram {
	return mustInstrument(meter.Float64Histogram(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
