package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"a@b@c", "***@***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactEmail(tt.in), tt.in)
	}
}

func TestLoggerRedactsEmailFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core), true)

	l.log(INFO, "sent", "email", "reader@example.com", "note", "cc other@example.org please", "count", 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "re***@example.com", fields["email"])
	assert.Equal(t, "cc ot***@example.org please", fields["note"])
	assert.EqualValues(t, 3, fields["count"])
}

func TestLoggerWithoutRedaction(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core), false)

	l.log(WARN, "bounce", "to", "reader@example.com", "dangling")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.Equal(t, "reader@example.com", entry.ContextMap()["to"])
	assert.Len(t, entry.Context, 1)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}
