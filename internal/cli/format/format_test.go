package format

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	doc := map[string]any{"tier": "freight", "count": 2}

	tests := []struct {
		name   string
		indent bool
		color  bool
		want   string
	}{
		{
			name:   "compact",
			indent: false,
			want:   `{"count":2,"tier":"freight"}` + "\n",
		},
		{
			name:   "indented",
			indent: true,
			want:   "{\n  \"count\": 2,\n  \"tier\": \"freight\"\n}\n",
		},
		{
			name:   "compact ignores color",
			indent: false,
			color:  true,
			want:   `{"count":2,"tier":"freight"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := JSON(&buf, doc, tt.indent, tt.color); err != nil {
				t.Fatalf("JSON() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("JSON() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSON_Highlighted(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, map[string]any{"tier": "freight"}, true, true); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI escapes, got %q", out)
	}
	if !strings.Contains(out, "freight") {
		t.Errorf("expected content to survive highlighting, got %q", out)
	}
}

func TestJSON_Unencodable(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, map[string]any{"f": func() {}}, false, false); err == nil {
		t.Error("expected an encoding error")
	}
}

func TestIsColorTerminal(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("NO_COLOR", "")

	if IsColorTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}

	t.Setenv("NO_COLOR", "1")
	if IsColorTerminal(os.Stdout) {
		t.Error("NO_COLOR must disable color")
	}

	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "dumb")
	if IsColorTerminal(os.Stdout) {
		t.Error("dumb terminals get no color")
	}
}
