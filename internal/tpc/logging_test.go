package tpc

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogWriters(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops, diag, trace bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag, Trace: &trace})

	Opsf("session %d started", 7)
	Diagf("skipped %d clusters", 3)
	Tracef("track %s gap at row %d", "trk_1", 42)

	if !strings.Contains(ops.String(), "[tpc] ") || !strings.Contains(ops.String(), "session 7 started") {
		t.Errorf("ops output = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "skipped 3 clusters") {
		t.Errorf("diag output = %q", diag.String())
	}
	if !strings.Contains(trace.String(), "track trk_1 gap at row 42") {
		t.Errorf("trace output = %q", trace.String())
	}
	if !TraceEnabled() {
		t.Error("TraceEnabled() = false with a trace writer installed")
	}
}

func TestDisabledStreams(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops})

	Diagf("should not panic")
	Tracef("should not panic either")
	if TraceEnabled() {
		t.Error("TraceEnabled() = true with no trace writer")
	}

	SetLogWriters(LogWriters{})
	Opsf("dropped")
	if ops.Len() != 0 {
		t.Errorf("ops output after disabling = %q, want empty", ops.String())
	}
}
