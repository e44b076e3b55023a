package engine

import (
	"strings"

	"github.com/rs/zerolog"
)

// restyLogger routes resty's internal warnings into zerolog instead of the
// default stderr logger, which would corrupt the interactive prompt.
type restyLogger struct {
	l zerolog.Logger
}

func newRestyLogger(l *zerolog.Logger) restyLogger {
	if l == nil {
		return restyLogger{zerolog.Nop()}
	}
	return restyLogger{*l}
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error().Msgf(strings.TrimSpace(format), v...)
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn().Msgf(strings.TrimSpace(format), v...)
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug().Msgf(strings.TrimSpace(format), v...)
}
