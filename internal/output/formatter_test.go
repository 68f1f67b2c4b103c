package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	// Disable color for tests
	color.NoColor = true
}

// captureStdout captures stdout during function execution
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	color.Output = w

	f()

	w.Close()
	os.Stdout = old
	color.Output = os.Stdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestJSON(t *testing.T) {
	data := map[string]interface{}{
		"domain": "example.com",
		"action": "deploy",
	}

	output := captureStdout(func() {
		_ = JSON(data)
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("JSON output is invalid: %v", err)
	}
	if result["domain"] != "example.com" {
		t.Errorf("expected domain example.com, got %v", result["domain"])
	}
	if result["action"] != "deploy" {
		t.Errorf("expected action deploy, got %v", result["action"])
	}
}

func TestTable(t *testing.T) {
	t.Run("basic table", func(t *testing.T) {
		headers := []string{"FILE", "SSL"}
		rows := [][]string{
			{"example.conf", "yes"},
			{"api.conf", "no"},
		}

		output := captureStdout(func() {
			Table(headers, rows)
		})

		for _, want := range []string{"FILE", "SSL", "example.conf", "api.conf", "----"} {
			if !strings.Contains(output, want) {
				t.Errorf("output should contain %q", want)
			}
		}
	})

	t.Run("empty headers", func(t *testing.T) {
		output := captureStdout(func() {
			Table(nil, [][]string{{"data"}})
		})
		if output != "" {
			t.Errorf("expected no output for empty headers, got %s", output)
		}
	})

	t.Run("empty rows", func(t *testing.T) {
		output := captureStdout(func() {
			Table([]string{"COL1", "COL2"}, nil)
		})
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 2 {
			t.Errorf("expected header and separator only, got %d lines", len(lines))
		}
	})

	t.Run("short row", func(t *testing.T) {
		output := captureStdout(func() {
			Table([]string{"COL1", "COL2"}, [][]string{{"a"}})
		})
		if !strings.Contains(output, "a") {
			t.Error("output should contain the short row")
		}
	})
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string, ...interface{})
		symbol string
	}{
		{"success", Success, "✓"},
		{"error", Error, "✗"},
		{"warn", Warn, "!"},
		{"info", Info, "→"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureStdout(func() {
				tt.fn("certificate for %s", "example.com")
			})
			if !strings.Contains(output, "certificate for example.com") {
				t.Errorf("output should contain formatted message: %s", output)
			}
			if !strings.Contains(output, tt.symbol) {
				t.Errorf("output should contain symbol %q: %s", tt.symbol, output)
			}
		})
	}
}

func TestNumbered(t *testing.T) {
	output := captureStdout(func() {
		Numbered([]string{"first", "second"})
	})

	if !strings.Contains(output, "1: first") {
		t.Errorf("missing first item: %s", output)
	}
	if !strings.Contains(output, "2: second") {
		t.Errorf("missing second item: %s", output)
	}
}
