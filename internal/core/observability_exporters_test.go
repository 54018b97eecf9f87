package core

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"fitcore/pkg/domain"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	src := fitSource()
	bonusModule(src, 10, domain.OpPostDiv, 0, attrStacked)
	fit, ship := newShipFit(t, src, WithMetrics(rec))
	addModule(t, fit, 10)
	mustGet(t, ship, attrStacked)
	mustGet(t, ship, attrStacked)

	if got := testutil.ToFloat64(rec.lookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(rec.skipped); got != 1 {
		t.Fatalf("expected 1 skipped contributor, got %v", got)
	}
	if got := testutil.ToFloat64(rec.instructions.WithLabelValues(InstrHolderAdd.String())); got != 2 {
		t.Fatalf("expected 2 holder adds, got %v", got)
	}
}

func TestJSONInstructionTracer(t *testing.T) {
	src := fitSource()
	bonusModule(src, 10, domain.OpPostMul, 1.5, attrTarget)
	fit, _ := newShipFit(t, src)

	var buf bytes.Buffer
	tracer := NewJSONInstructionTracer(&buf)
	fit.Subscribe(tracer)
	module := addModule(t, fit, 10)

	entries := tracer.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	last := entries[2]
	if last.Kind != "effects_activate" || last.Holder != module.ID() || len(last.Effects) != 1 || last.Effects[0] != 10 {
		t.Fatalf("unexpected entry %+v", last)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var decoded JSONInstructionEntry
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines++
	}
	if lines != 3 {
		t.Fatalf("expected 3 lines, got %d", lines)
	}
}
