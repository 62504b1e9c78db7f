// Package log builds the go-kit loggers used by the command-line tools.
package log

import (
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New returns a logfmt logger writing to stderr, filtered to the given
// level ("debug", "info", "warn", "error").
func New(lvl string) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	logger = level.NewFilter(logger, opt)
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
}
