// Package main provides the os-pointer plugin. It moves the operating
// system pointer to the click point and presses the left button, for
// targets that only react to real device input.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/go-vgo/robotgo"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Target string          `json:"target"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config maps page coordinates onto the screen: screen = offset + scale*page.
type Config struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`
	Button  string  `json:"button"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	x, y := cfg.toScreen(req.X, req.Y)
	w, h := robotgo.GetScreenSize()
	if x < 0 || y < 0 || x >= w || y >= h {
		writeErrorResponse(fmt.Sprintf("point %d,%d is off screen (%dx%d)", x, y, w, h))
		return
	}

	switch req.Action {
	case "move":
		robotgo.Move(x, y)
	case "click":
		robotgo.Move(x, y)
		robotgo.Click(cfg.Button)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse(x, y)
}

func parseConfig(raw json.RawMessage) (Config, error) {
	cfg := Config{Scale: 1, Button: "left"}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %v", err)
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Button == "" {
		cfg.Button = "left"
	}
	return cfg, nil
}

func (c Config) toScreen(x, y float64) (int, int) {
	return int(math.Round(c.OffsetX + c.Scale*x)), int(math.Round(c.OffsetY + c.Scale*y))
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes the screen point that was used.
func writeSuccessResponse(x, y int) {
	data, _ := json.Marshal(map[string]int{"x": x, "y": y})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
