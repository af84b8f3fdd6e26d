package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestLogWritesJSONLine(t *testing.T) {
	buf := captureLog(t)

	Log(Fields{Component: "checkout", OrderID: 42, Status: "ok", DurationMS: 12})

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "checkout", got["component"])
	assert.Equal(t, float64(42), got["order_id"])
	assert.Equal(t, "ok", got["status"])
	assert.NotEmpty(t, got["timestamp"])
	assert.NotContains(t, got, "customer")
}

func TestErrorIncludesMessage(t *testing.T) {
	buf := captureLog(t)

	Error("relay", "publish", errors.New("broker down"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "broker down", got["error"])
	assert.Equal(t, "publish", got["step"])
}
