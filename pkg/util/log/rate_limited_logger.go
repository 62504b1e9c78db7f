package log

import (
	"time"

	kitlog "github.com/go-kit/log"
	"golang.org/x/time/rate"
)

// Logger is the default logger used when callers don't inject their own.
var Logger = New("info")

// RateLimitedLogger caps the rate of emitted log lines; the pool uses it so
// a failing batch doesn't flood stderr with one line per job.
type RateLimitedLogger struct {
	limiter *rate.Limiter
	logger  kitlog.Logger
}

func NewRateLimitedLogger(logsPerSecond int, logger kitlog.Logger) *RateLimitedLogger {
	return &RateLimitedLogger{
		limiter: rate.NewLimiter(rate.Limit(logsPerSecond), 1),
		logger:  logger,
	}
}

func (l *RateLimitedLogger) Log(keyvals ...interface{}) {
	if !l.limiter.AllowN(time.Now(), 1) {
		return
	}

	_ = l.logger.Log(keyvals...)
}
