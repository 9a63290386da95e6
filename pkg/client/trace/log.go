package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"
)

type logTrace struct {
	ClientTrace
	wr io.Writer
}

// LogTracer writes one line per request stage to the writer.
func LogTracer(wr io.Writer) Factory {
	var idGenerator uint64
	return func(ctx context.Context, method, url string) (context.Context, *ClientTrace) {
		requestID := atomic.AddUint64(&idGenerator, 1)
		prefix := fmt.Sprintf(`%s "%s"`, method, url)

		var connStartTime time.Time
		var startTime time.Time
		var doneTime time.Time
		var statusCode int

		t := &logTrace{wr: wr}
		t.ConnectStart = func(network, addr string) {
			connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			var infoStr string
			if info.Reused {
				infoStr = "reused conn"
			} else {
				infoStr = fmt.Sprintf("new conn | %s", time.Since(connStartTime))
			}
			t.log(requestID, fmt.Sprintf(`CONN  %s | %s`, prefix, infoStr))
		}
		t.HTTPRequestStart = func(r *http.Request) {
			// Method may differ from the definition, GET with a body is sent as POST
			prefix = fmt.Sprintf(`%s "%s"`, r.Method, url)
			startTime = time.Now()
			t.log(requestID, fmt.Sprintf(`START %s`, prefix))
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			doneTime = time.Now()
			var errorStr string
			if err == nil {
				statusCode = r.StatusCode
			} else {
				errorStr = fmt.Sprintf(" | error=%s", err)
			}
			t.log(requestID, fmt.Sprintf(`DONE  %s | %d | %s%s`, prefix, statusCode, doneTime.Sub(startTime).String(), errorStr))
		}
		t.ResponseBodyClosed = func(bytes int64, err error) {
			var errorStr string
			if err != nil {
				errorStr = fmt.Sprintf(" | error=%s", err)
			}
			t.log(requestID, fmt.Sprintf(`BODY  %s | %dB | %s%s`, prefix, bytes, time.Since(doneTime).String(), errorStr))
		}
		t.RequestProcessed = func(result any, err error) {
			var resultStr string
			switch v := result.(type) {
			case int:
				resultStr = fmt.Sprintf("status=%d", v)
			case string:
				resultStr = fmt.Sprintf("text=%d chars", len([]rune(v)))
			default:
				resultStr = "absent"
			}
			if err != nil {
				resultStr += fmt.Sprintf(" | error=%s", err)
			}
			t.log(requestID, fmt.Sprintf(`END   %s | %s`, prefix, resultStr))
		}
		return ctx, &t.ClientTrace
	}
}

func (t *logTrace) log(requestID uint64, a ...any) {
	a = append([]any{fmt.Sprintf("HTTP_REQUEST[%04d]", requestID)}, a...)
	_, _ = fmt.Fprintln(t.wr, a...)
}
