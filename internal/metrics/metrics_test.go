package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestOutcomeOf(t *testing.T) {
	if OutcomeOf(nil) != Success {
		t.Errorf("OutcomeOf(nil) = %v, want Success", OutcomeOf(nil))
	}
	if OutcomeOf(errors.New("boom")) != Failure {
		t.Errorf("OutcomeOf(err) = %v, want Failure", OutcomeOf(errors.New("boom")))
	}
}

func TestObserveOpWritesPrometheusOutput(t *testing.T) {
	m := New()
	m.ObserveOp("put", 5*time.Millisecond, Success)
	m.ObserveOp("put", 1*time.Millisecond, Failure)

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()

	if !strings.Contains(out, `hxkv_op_total{op="put",outcome="success"} 1`) {
		t.Errorf("missing success counter in output:\n%s", out)
	}
	if !strings.Contains(out, `hxkv_op_total{op="put",outcome="error"} 1`) {
		t.Errorf("missing error counter in output:\n%s", out)
	}
	if !strings.Contains(out, `hxkv_op_duration_seconds_count{op="put"} 2`) {
		t.Errorf("missing duration histogram in output:\n%s", out)
	}
}

func TestObserveSearchPlan(t *testing.T) {
	m := New()
	m.ObserveSearchPlan("sorted_intersection")
	m.ObserveSearchPlan("sorted_intersection")
	m.ObserveSearchPlan("full_scan")

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()

	if !strings.Contains(out, `hxkv_search_plan_total{strategy="sorted_intersection"} 2`) {
		t.Errorf("expected count 2 for sorted_intersection, got:\n%s", out)
	}
	if !strings.Contains(out, `hxkv_search_plan_total{strategy="full_scan"} 1`) {
		t.Errorf("expected count 1 for full_scan, got:\n%s", out)
	}
}

func TestObserveCleaningPass(t *testing.T) {
	m := New()
	m.ObserveCleaningPass(10*time.Millisecond, 3, Success)

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()

	if !strings.Contains(out, `hxkv_cleaner_pass_total{outcome="success"} 1`) {
		t.Errorf("missing pass counter:\n%s", out)
	}
	if !strings.Contains(out, `hxkv_cleaner_reclaimed_total 3`) {
		t.Errorf("missing reclaimed counter:\n%s", out)
	}
}

func TestSetApproximateSize(t *testing.T) {
	m := New()
	m.SetApproximateSize(4096)

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()

	if !strings.Contains(out, `hxkv_store_approximate_size_bytes 4096`) {
		t.Errorf("missing size metric:\n%s", out)
	}
}

func TestHandlerServesPrometheusFormat(t *testing.T) {
	m := New()
	m.ObserveOp("get", time.Millisecond, Success)

	if m.Handler() == nil {
		t.Fatalf("Handler must not be nil")
	}

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	if !strings.Contains(buf.String(), "hxkv_op_total") {
		t.Errorf("expected metric output, got %q", buf.String())
	}
}
