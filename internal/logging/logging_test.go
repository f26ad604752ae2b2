package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Format: FormatJSON, Writer: &buf})

	log.Debug().Msg("hidden")
	log.Info().Str("component", "session").Msg("started")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "started", ev["message"])
	assert.Equal(t, "session", ev["component"])
	assert.Equal(t, "info", ev["level"])
	assert.Contains(t, ev, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Writer: &buf})

	log.Warn().Msg("cycle failed")

	assert.Contains(t, buf.String(), "cycle failed")
	assert.Contains(t, buf.String(), "WRN")
}
