// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Level maps a level name to a log.Level. Unknown names fall back to info.
func Level(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Setup installs the default logger. Output is human-readable on a terminal
// and JSON lines otherwise.
func Setup(level string) {
	var w log.Writer = &log.IOWriter{Writer: os.Stderr}
	if log.IsTerminal(os.Stderr.Fd()) {
		w = &log.ConsoleWriter{ColorOutput: true, EndWithMessage: true, Writer: os.Stderr}
	}
	install(level, w)
}

// SetupWriter installs a JSON logger writing to out.
func SetupWriter(level string, out io.Writer) {
	install(level, &log.IOWriter{Writer: out})
}

func install(level string, w log.Writer) {
	log.DefaultLogger = log.Logger{
		Level:      Level(level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Writer:     w,
	}
}
