// ABOUTME: Tests for telemetry provider creation and export using the real OpenTelemetry SDK
// ABOUTME: Validates provider initialization, configuration validation, and stdout export of spans and metrics

package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectNoop  bool
		expectError bool
	}{
		{
			name:        "disabled telemetry returns noop",
			cfg:         Config{Enabled: false},
			expectNoop:  true,
			expectError: false,
		},
		{
			name: "invalid config returns error",
			cfg: Config{
				Enabled:     true,
				ServiceName: "", // Invalid: empty service name
			},
			expectError: true,
		},
		{
			name: "valid config returns sdk provider",
			cfg: func() Config {
				cfg := DefaultConfig()
				cfg.Output = &bytes.Buffer{}
				return cfg
			}(),
			expectNoop:  false,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel, err := New(tt.cfg)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if tel == nil {
				t.Fatal("Expected telemetry instance but got nil")
			}
			defer tel.Shutdown(context.Background())

			_, isNoop := tel.(*NoopTelemetry)
			if isNoop != tt.expectNoop {
				t.Errorf("Expected noop=%v, got %T", tt.expectNoop, tel)
			}
		})
	}
}

func TestProviderExportsToStdout(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &out

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx := context.Background()
	spanCtx, span := tel.StartSpan(ctx, "compaction.partition", attribute.Int(AttrPartition, 3))
	tel.RecordHistogram(spanCtx, MetricPassDuration, 0.25, attribute.String(AttrPass, PassVertical))
	tel.RecordCounter(spanCtx, MetricBlocksOut, 12)
	tel.RecordCounter(spanCtx, MetricBlocksOut, 4)
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	exported := out.String()
	for _, want := range []string{"compaction.partition", MetricPassDuration, MetricBlocksOut, "blockvid"} {
		if !strings.Contains(exported, want) {
			t.Errorf("Expected exported data to mention %q", want)
		}
	}
}

func TestProviderServesPrometheusMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporters = []string{"prometheus"}
	cfg.PrometheusPort = 0

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.RecordCounter(context.Background(), MetricBlocksOut, 42, attribute.Int(AttrPartition, 1))

	provider := tel.(*TelemetryProvider)
	_, port, err := net.SplitHostPort(provider.MetricsAddr())
	if err != nil {
		t.Fatalf("Unexpected metrics address %q: %v", provider.MetricsAddr(), err)
	}

	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	if !strings.Contains(string(body), "blockvid_blocks_out") {
		t.Errorf("Expected blockvid_blocks_out in scrape, got:\n%s", body)
	}
}

func TestProviderResource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = &bytes.Buffer{}
	cfg.ServiceVersion = "1.2.3"

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer tel.Shutdown(context.Background())

	provider, ok := tel.(*TelemetryProvider)
	if !ok {
		t.Fatalf("Expected *TelemetryProvider, got %T", tel)
	}

	found := false
	for _, kv := range provider.Resource().Attributes() {
		if kv.Key == "service.version" && kv.Value.AsString() == "1.2.3" {
			found = true
		}
	}
	if !found {
		t.Error("Expected service.version on the resource")
	}
}

func TestNewWithInvalidConfigs(t *testing.T) {
	invalidConfigs := []Config{
		{
			Enabled:     true,
			ServiceName: "", // Empty service name
		},
		{
			Enabled:        true,
			ServiceName:    "test",
			ServiceVersion: "", // Empty service version
		},
		{
			Enabled:        true,
			ServiceName:    "test",
			ServiceVersion: "1.0.0",
			SampleRate:     -0.1, // Invalid sample rate
		},
		{
			Enabled:        true,
			ServiceName:    "test",
			ServiceVersion: "1.0.0",
			SampleRate:     1.1, // Invalid sample rate
		},
		{
			Enabled:        true,
			ServiceName:    "test",
			ServiceVersion: "1.0.0",
			SampleRate:     1.0,
			ExportTimeout:  0, // Invalid timeout
		},
	}

	for i, cfg := range invalidConfigs {
		t.Run(fmt.Sprintf("invalid_config_%d", i), func(t *testing.T) {
			tel, err := New(cfg)

			if err == nil {
				t.Error("Expected error for invalid config but got none")
			}

			if tel != nil {
				t.Error("Expected nil telemetry for invalid config but got instance")
			}
		})
	}
}
