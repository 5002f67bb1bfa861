// Package logger provides structured JSON logging to stdout.
package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Logger is the structured logging interface used across services.
type Logger interface {
	Info(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

type jsonLogger struct {
	service string
	out     *log.Logger
}

// New returns a JSON logger tagged with the given service name.
func New(service string) Logger {
	return &jsonLogger{
		service: service,
		out:     log.New(os.Stdout, "", 0),
	}
}

func (l *jsonLogger) log(level, message string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     level,
		"service":   l.service,
		"message":   message,
	}
	for k, v := range fields {
		entry[k] = v
	}
	data, _ := json.Marshal(entry)
	l.out.Println(string(data))
}

func (l *jsonLogger) Info(message string, fields map[string]interface{})  { l.log("info", message, fields) }
func (l *jsonLogger) Warn(message string, fields map[string]interface{})  { l.log("warn", message, fields) }
func (l *jsonLogger) Error(message string, fields map[string]interface{}) { l.log("error", message, fields) }
func (l *jsonLogger) Debug(message string, fields map[string]interface{}) { l.log("debug", message, fields) }

func (l *jsonLogger) Fatal(message string, fields map[string]interface{}) {
	l.log("fatal", message, fields)
	os.Exit(1)
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}
func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Fatal(string, map[string]interface{}) {}
