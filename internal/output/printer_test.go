package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPrinter_StepBanner(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPrinterWithWriter(buf)

	p.StepBanner("define", "prd", "Write a product requirements document")

	out := buf.String()
	if !strings.Contains(out, "define/prd") {
		t.Errorf("banner missing step name: %q", out)
	}
	if !strings.Contains(out, "Write a product requirements") {
		t.Errorf("banner missing prompt: %q", out)
	}
}

func TestPrinter_StepBanner_TruncatesPrompt(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPrinterWithWriter(buf)
	p.SetLimits(0, 20)

	long := strings.Repeat("x", 100)
	p.StepBanner("test", "run", long)

	if strings.Contains(buf.String(), long) {
		t.Error("long prompt should be truncated")
	}
	if !strings.Contains(buf.String(), "...") {
		t.Error("truncated prompt should carry an ellipsis")
	}
}

func TestPrinter_SessionComplete(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		want     string
	}{
		{"success", 0, "Done"},
		{"failure", 2, "exit 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := NewPrinterWithWriter(buf)

			p.SessionComplete(tt.exitCode, 1500*time.Millisecond)

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q missing %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrinter_ToolCall(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPrinterWithWriter(buf)

	p.ToolCall("Bash", "List files", "ls -la", "")

	out := buf.String()
	for _, want := range []string{"Bash", "List files", "ls -la"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestPrinter_ToolOutput_Truncates(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPrinterWithWriter(buf)
	p.SetLimits(4, 0)

	lines := make([]string, 50)
	for i := range lines {
		lines[i] = "line"
	}
	p.ToolOutput(strings.Join(lines, "\n"), "")

	if !strings.Contains(buf.String(), "46 lines omitted") {
		t.Errorf("long output should be truncated in the middle: %q", buf.String())
	}
}

func TestPrinter_DecisionLines(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPrinterWithWriter(buf)

	p.RunStep("prototype", "scaffold")
	p.ApprovalGate("define", "approve")
	p.Blocked("test", "fix", "retry budget exhausted")
	p.Complete()

	out := buf.String()
	for _, want := range []string{
		"prototype/scaffold",
		"awaits approval",
		"retry budget exhausted",
		"workflow complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPrinter_Summary(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewPrinterWithWriter(buf)

	p.Summary([]StepResult{
		{Phase: "define", Step: "prd", Success: true, Duration: 2 * time.Second},
		{Phase: "test", Step: "run", Success: false, Duration: 5 * time.Second},
	}, 7*time.Second)

	out := buf.String()
	if !strings.Contains(out, "define/prd") || !strings.Contains(out, "test/run") {
		t.Errorf("summary missing steps: %q", out)
	}
	if !strings.Contains(out, "total 7s") {
		t.Errorf("summary missing total: %q", out)
	}
}

func TestTruncateMiddle_ShortInputUnchanged(t *testing.T) {
	in := "a\nb\nc"
	if got := truncateMiddle(in, 10); got != in {
		t.Errorf("short input changed: %q", got)
	}
}
