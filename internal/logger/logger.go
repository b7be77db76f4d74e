package logger

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Setup builds the process logger and installs it as the global zerolog logger.
// A non-empty level (trace, debug, info, warn, error) overrides the level
// implied by dev.
func Setup(dev bool, level string) (zerolog.Logger, error) {
	logger, err := withLevel(setup(os.Stderr, dev), level)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	return logger, nil
}

func withLevel(logger zerolog.Logger, level string) (zerolog.Logger, error) {
	if level == "" {
		return logger, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logger, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return logger.Level(lvl), nil
}

func setup(out io.Writer, dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Requests logs one access line per HTTP request and attaches a request
// scoped logger, retrievable with hlog.FromRequest. Only the path is logged;
// query strings can carry authorization codes.
func Requests(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			evt := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				evt = hlog.FromRequest(r).Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("http request")
		})(next)
		h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
		h = hlog.UserAgentHandler("user_agent")(h)
		h = hlog.RemoteAddrHandler("remote_addr")(h)

		return hlog.NewHandler(logger)(h)
	}
}
