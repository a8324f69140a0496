package version

import (
	"strings"
	"testing"
)

func TestAccessorsMatchInfo(t *testing.T) {
	v, c, d := Info()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "version", got: GetVersion(), want: v},
		{name: "commit", got: GetCommit(), want: c},
		{name: "date", got: GetDate(), want: d},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == "" {
				t.Fatalf("%s should not be empty", tt.name)
			}
			if tt.got != tt.want {
				t.Fatalf("%s: accessor returned %q, Info returned %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	s := String()

	if !strings.HasPrefix(s, "inventory-sync ") {
		t.Errorf("String should start with the service name, got %q", s)
	}
	for _, part := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("String should contain %q, got %q", part, s)
		}
	}
}
