// Package logging provides the leveled logger used across hxkv.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level orders log severity from most to least verbose.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// Level, defaulting to Info for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger is a small leveled wrapper around the standard library logger,
// tagged with the name of the component that owns it.
type Logger struct {
	name   string
	level  Level
	logger *log.Logger
}

// New creates a Logger writing to stderr, tagged with name.
func New(name string, level Level) *Logger {
	return &Logger{
		name:   name,
		level:  level,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
}

// With returns a copy of l tagged with a sub-component name, e.g.
// New("datalayer", lvl).With("cleaner").
func (l *Logger) With(sub string) *Logger {
	return &Logger{name: l.name + "." + sub, level: l.level, logger: l.logger}
}

func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level <= Debug {
		l.log(Debug, format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level <= Info {
		l.log(Info, format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.level <= Warn {
		l.log(Warn, format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level <= Error {
		l.log(Error, format, args...)
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-20s | %s", level.String(), l.name, message)
}
