package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Logger provides leveled, timestamped logging throughout the pipeline.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// NewLogger creates a Logger writing to stdout/stderr. Debug lines are only
// emitted when level is "debug".
func NewLogger(level string) *Logger {
	flags := 0
	return &Logger{
		info:         log.New(os.Stdout, "", flags),
		warn:         log.New(os.Stdout, "", flags),
		err:          log.New(os.Stderr, "", flags),
		debug:        log.New(os.Stdout, "", flags),
		debugEnabled: strings.EqualFold(strings.TrimSpace(level), "debug"),
	}
}

// NewLoggerTo sends every level to w. Tests pass io.Discard.
func NewLoggerTo(w io.Writer, debug bool) *Logger {
	return &Logger{
		info:         log.New(w, "", 0),
		warn:         log.New(w, "", 0),
		err:          log.New(w, "", 0),
		debug:        log.New(w, "", 0),
		debugEnabled: debug,
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger { return NewLoggerTo(io.Discard, false) }

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s\n", l.timestamp(), format), args...)
}
