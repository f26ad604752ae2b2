package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/nritya/internal/dispatch"
)

// Strategy runs a plugin as one dispatch strategy. It sends the click point
// and the hit element's tag.
type Strategy struct {
	Plugin   *Plugin
	Executor *Executor

	// Config is passed through to the plugin unchanged.
	Config json.RawMessage
}

// Name returns "plugin:<name>".
func (s *Strategy) Name() string {
	return "plugin:" + s.Plugin.Manifest.Name
}

// Apply runs the plugin's click action.
func (s *Strategy) Apply(ctx context.Context, hit dispatch.Hit) error {
	resp, err := s.Executor.Execute(ctx, s.Plugin, &Request{
		Action: ActionClick,
		X:      hit.Point.X,
		Y:      hit.Point.Y,
		Target: hit.Tag,
		Config: s.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error == "" {
			return errors.New("plugin reported failure")
		}
		return fmt.Errorf("plugin: %s", resp.Error)
	}
	return nil
}

// Strategies resolves the named plugins into dispatch strategies. Every
// plugin must support the click action.
func Strategies(m *Manager, exec *Executor, names []string) ([]dispatch.Strategy, error) {
	out := make([]dispatch.Strategy, 0, len(names))
	for _, name := range names {
		p, err := m.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if !p.Manifest.Supports(ActionClick) {
			return nil, fmt.Errorf("%s: does not support %q", name, ActionClick)
		}
		out = append(out, &Strategy{Plugin: p, Executor: exec})
	}
	return out, nil
}
