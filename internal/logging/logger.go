// Package logging provides the leveled logger injected into molsim packages.
package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logger is the logging surface packages depend on.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name (case-insensitive), defaulting to info.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Leveled writes messages at or above its level through a standard logger.
type Leveled struct {
	level Level
	out   *log.Logger
}

// New creates a leveled logger writing to w.
func New(level string, w io.Writer) *Leveled {
	return &Leveled{
		level: ParseLevel(level),
		out:   log.New(w, "", log.LstdFlags),
	}
}

func (l *Leveled) Level() Level { return l.level }

func (l *Leveled) logf(level Level, format string, v ...any) {
	if level < l.level {
		return
	}
	l.out.Printf("[%s] %s", strings.ToUpper(level.String()), fmt.Sprintf(format, v...))
}

func (l *Leveled) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Leveled) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Leveled) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Leveled) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }

// Nop discards everything.
type Nop struct{}

func (Nop) Debugf(format string, v ...any) {}
func (Nop) Infof(format string, v ...any)  {}
func (Nop) Warnf(format string, v ...any)  {}
func (Nop) Errorf(format string, v ...any) {}
