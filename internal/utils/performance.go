package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// slowOperationThreshold is the duration above which an operation is logged at warn
const slowOperationThreshold = 30 * time.Second

// Timer measures how long an operation takes and logs it on Stop
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer for the named operation
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop logs the elapsed time and returns it
func (t *Timer) Stop() time.Duration {
	return t.StopWithFields(nil)
}

// StopWithFields logs the elapsed time together with extra fields
func (t *Timer) StopWithFields(fields map[string]interface{}) time.Duration {
	duration := time.Since(t.start)

	event := t.log.Debug()
	if duration > slowOperationThreshold {
		event = t.log.Warn()
	}

	event.
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Fields(fields).
		Msg("Performance measurement")

	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func MyFunction() {
//	    defer utils.OperationTimer("my_function", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, log)
	return func() {
		t.Stop()
	}
}
