package jp2

import (
	log "github.com/sirupsen/logrus"
)

// Diagnostics receives advisory messages from the codec. Nothing here is
// part of the decode result.
type Diagnostics interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// NopDiagnostics discards every message
type NopDiagnostics struct{}

func (NopDiagnostics) Info(string)    {}
func (NopDiagnostics) Warning(string) {}
func (NopDiagnostics) Error(string)   {}

// LogDiagnostics forwards codec messages to a logrus logger
type LogDiagnostics struct {
	Logger log.FieldLogger
}

// NewLogDiagnostics wraps logger, tagging every entry with the codec name
func NewLogDiagnostics(logger log.FieldLogger, codec string) *LogDiagnostics {
	return &LogDiagnostics{Logger: logger.WithField("codec", codec)}
}

func (d *LogDiagnostics) Info(msg string)    { d.Logger.Info(msg) }
func (d *LogDiagnostics) Warning(msg string) { d.Logger.Warn(msg) }
func (d *LogDiagnostics) Error(msg string)   { d.Logger.Error(msg) }
