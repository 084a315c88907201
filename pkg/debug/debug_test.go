package debug

import (
	"bytes"
	"testing"
)

func TestTraceFlags(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldEnabled, oldFrames := Output, Enabled, Frames
	t.Cleanup(func() { Output, Enabled, Frames = oldOut, oldEnabled, oldFrames })
	Output = &buf

	Enabled, Frames = false, false
	Log("a %d\n", 1)
	Logln("b")
	FrameLog("c\n")
	if buf.Len() != 0 {
		t.Fatalf("expected no output when disabled, got %q", buf.String())
	}

	Enabled = true
	Log("a %d\n", 1)
	Logln("b")
	FrameLog("c\n")
	if got := buf.String(); got != "a 1\nb\n" {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	Frames = true
	FrameLog("frame %d\n", 7)
	if got := buf.String(); got != "frame 7\n" {
		t.Errorf("frame output = %q", got)
	}
}
