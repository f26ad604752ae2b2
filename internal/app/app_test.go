package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/pose"
	"github.com/ayusman/nritya/internal/store"
)

func TestNewEstimator(t *testing.T) {
	tests := []struct {
		backend string
		want    any
	}{
		{config.BackendMoveNet, &pose.MoveNet{}},
		{"", &pose.MoveNet{}},
		{config.BackendService, &pose.Service{}},
		{config.BackendMock, &pose.ScriptedEstimator{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			est, err := NewEstimator(config.ModelConfig{Backend: tt.backend, Size: 192})
			require.NoError(t, err)
			assert.IsType(t, tt.want, est)
		})
	}

	_, err := NewEstimator(config.ModelConfig{Backend: "tflite"})
	assert.Error(t, err)
}

func TestPreviewURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080/api/stream",
		"0.0.0.0:9000":   "http://localhost:9000/api/stream",
		"127.0.0.1:8080": "http://127.0.0.1:8080/api/stream",
		"":               "",
		"nonsense":       "",
	}
	for addr, want := range tests {
		assert.Equal(t, want, previewURL(addr), addr)
	}
}

func TestLastClickLabel(t *testing.T) {
	assert.Equal(t, "a at 10,20", LastClickLabel(&store.Click{Target: "a", X: 10.4, Y: 19.6}))
	assert.Equal(t, "nothing at 0,0", LastClickLabel(&store.Click{}))
	assert.Equal(t, "canvas (events: boom)", LastClickLabel(&store.Click{Target: "canvas", Error: "events: boom\ncanvas: boom"}))
}
