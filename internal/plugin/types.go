// Package plugin runs external click plugins: executables that receive one
// JSON request on stdin and answer one JSON response on stdout.
package plugin

import "encoding/json"

// Actions sent to plugins.
const (
	ActionClick = "click"
	ActionMove  = "move"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution. X and Y are
// display coordinates; Target is the tag of the hit element, if any.
type Request struct {
	Action string          `json:"action"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Target string          `json:"target,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
