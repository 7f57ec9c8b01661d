package utils

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_StopWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("train_agent", log)
	d := timer.StopWithFields(map[string]interface{}{"episodes": 10})

	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Contains(t, buf.String(), `"operation":"train_agent"`)
	assert.Contains(t, buf.String(), `"episodes":10`)
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	func() {
		defer OperationTimer("fetch_prices", log)()
	}()

	assert.Contains(t, buf.String(), "fetch_prices")
}
