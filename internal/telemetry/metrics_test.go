package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gathered(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return -1
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PublicationAttempt("telegram", true)
	m.PublicationAttempt("vk", false)
	m.PublicationAttempt("vk", false)
	m.PostPublished("partial")
	m.PlatformUp("vk", true)

	if got := gathered(t, reg, "smm_publications_total", map[string]string{"platform": "vk", "status": "failed"}); got != 2 {
		t.Errorf("vk failed = %v, want 2", got)
	}
	if got := gathered(t, reg, "smm_posts_published_total", map[string]string{"delivery": "partial"}); got != 1 {
		t.Errorf("partial = %v, want 1", got)
	}
	if got := gathered(t, reg, "smm_platform_up", map[string]string{"platform": "vk"}); got != 1 {
		t.Errorf("platform up = %v, want 1", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "INFO", "json").Info("hello", "post_id", "p1")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"post_id":"p1"`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, "INFO", "text").Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}
}
