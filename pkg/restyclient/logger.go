package restyclient

import (
	"fmt"
	"strings"

	"github.com/grayfox/go-client/pkg/log"
)

// restyLogger forwards messages of the resty library to the log.Logger.
type restyLogger struct {
	logger log.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Errorf(strings.TrimSpace(format), v...), "resty error")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Errorf(strings.TrimSpace(format), v...), "resty warning")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
