package chartconfig

import (
	"strings"
	"testing"
	"time"
)

func TestActionConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		ac          ActionConfig
		wantErr     bool
		errContains string
	}{
		{name: "target", ac: ActionConfig{Target: "next"}},
		{name: "send with delay", ac: ActionConfig{Send: "tick", After: time.Second}},
		{name: "run every", ac: ActionConfig{Run: "poll", Every: time.Second}},
		{name: "guarded", ac: ActionConfig{Target: "done", When: "count >= 3"}},
		{name: "empty", ac: ActionConfig{}, wantErr: true, errContains: "one of run, send or target"},
		{name: "two kinds", ac: ActionConfig{Send: "a", Target: "b"}, wantErr: true, errContains: "only one"},
		{name: "after and every", ac: ActionConfig{Send: "a", After: 1, Every: 1}, wantErr: true, errContains: "mutually exclusive"},
		{name: "negative delay", ac: ActionConfig{Send: "a", After: -1}, wantErr: true, errContains: "non-negative"},
		{name: "bad target", ac: ActionConfig{Target: "a.b"}, wantErr: true, errContains: "invalid character"},
		{name: "bad guard", ac: ActionConfig{Target: "a", When: "count"}, wantErr: true, errContains: "key op value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ac.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestActionKind(t *testing.T) {
	for want, ac := range map[string]ActionConfig{
		"run":    {Run: "x"},
		"send":   {Send: "x"},
		"target": {Target: "x"},
	} {
		if got := ac.Kind(); got != want {
			t.Errorf("Kind() = %q, want %q", got, want)
		}
	}
}
