package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// ─── Logger ─────────────────────────────────────────────────────────────────

func TestNewLogger_JSONWithContextFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "info"}, &buf)
	base := Base(log, "takax-test")

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "1001")
	Entry(ctx, base).Info("task submitted")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "req-1" || line["user_id"] != "1001" {
		t.Errorf("context fields missing: %v", line)
	}
	if line["service"] != "takax-test" {
		t.Errorf("service = %v", line["service"])
	}
}

func TestNewLogger_EnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	log := NewLogger(LogConfig{Level: "debug"}, &bytes.Buffer{})
	if log.GetLevel().String() != "error" {
		t.Errorf("level = %s, want error", log.GetLevel())
	}
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	log := NewLogger(LogConfig{Level: "loud"}, &bytes.Buffer{})
	if log.GetLevel().String() != "info" {
		t.Errorf("level = %s, want info", log.GetLevel())
	}
}

func TestEntry_NoFields(t *testing.T) {
	log := NewLogger(LogConfig{}, &bytes.Buffer{})
	base := Base(log, "")
	if Entry(context.Background(), base) != base {
		t.Error("Entry without context fields should return base")
	}
	if base.Data["service"] != "takax" {
		t.Errorf("default service = %v", base.Data["service"])
	}
}

// ─── Operation Timer ────────────────────────────────────────────────────────

func TestOp_EndRecordsOutcome(t *testing.T) {
	StartOp("test.op").End(nil)
	StartOp("test.op").End(errors.New("boom"))

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	outcomes := map[string]uint64{}
	for _, mf := range families {
		if mf.GetName() != "takax_service_operation_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var op, outcome string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "operation":
					op = lp.GetValue()
				case "outcome":
					outcome = lp.GetValue()
				}
			}
			if op == "test.op" {
				outcomes[outcome] = m.GetHistogram().GetSampleCount()
			}
		}
	}
	if outcomes["ok"] != 1 || outcomes["error"] != 1 {
		t.Errorf("outcomes = %v, want one ok and one error", outcomes)
	}
}
