package tray

import "testing"

func TestTray_ToggleWithoutMenu(t *testing.T) {
	tr := New(false)

	var requested []bool
	tr.OnToggle(func(enabled bool) {
		requested = append(requested, enabled)
		tr.SetEnabled(enabled)
	})

	tr.handleToggle()
	if !tr.IsEnabled() {
		t.Error("expected enabled after first toggle")
	}
	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected disabled after second toggle")
	}

	if len(requested) != 2 || !requested[0] || requested[1] {
		t.Errorf("expected requests [true false], got %v", requested)
	}
}

func TestTray_FailedToggleKeepsState(t *testing.T) {
	tr := New(false)
	tr.OnToggle(func(enabled bool) {
		// Start failed: the real state stays off.
		tr.SetEnabled(false)
	})

	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected tray to stay disabled after a failed enable")
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{toggleTitle(true), "● Motion Control On"},
		{toggleTitle(false), "○ Motion Control Off"},
		{lastClickTitle(""), "Last click: none"},
		{lastClickTitle("button"), "Last click: button"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}
