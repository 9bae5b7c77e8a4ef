// ABOUTME: OpenTelemetry exporter factory for creating metric readers and trace exporters (Prometheus, OTLP, stdout)
// ABOUTME: Handles configuration and creation of the telemetry export destinations

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// metricsServer serves a Prometheus registry over HTTP.
type metricsServer struct {
	listener net.Listener
	server   *http.Server
}

func (s *metricsServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *metricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// createMetricReaders creates metric readers based on configuration. The
// returned server is non-nil when the prometheus exporter is configured.
func createMetricReaders(cfg Config) ([]metric.Reader, *metricsServer, error) {
	var readers []metric.Reader
	var server *metricsServer

	for _, exporterName := range cfg.Exporters {
		switch exporterName {
		case "prometheus":
			reader, srv, err := createPrometheusReader(cfg)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
			}
			readers = append(readers, reader)
			server = srv

		case "stdout":
			exporter, err := createStdoutMetricExporter(cfg)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
			}
			readers = append(readers, periodicReader(cfg, exporter))
		}
	}

	if len(readers) == 0 {
		// Default to stdout if no metric exporter is configured
		exporter, err := createStdoutMetricExporter(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create default stdout metric exporter: %w", err)
		}
		readers = append(readers, periodicReader(cfg, exporter))
	}

	return readers, server, nil
}

func periodicReader(cfg Config, exporter metric.Exporter) metric.Reader {
	return metric.NewPeriodicReader(exporter,
		metric.WithInterval(cfg.BatchTimeout),
		metric.WithTimeout(cfg.ExportTimeout),
	)
}

// createTraceExporters creates trace exporters based on configuration.
func createTraceExporters(ctx context.Context, cfg Config) ([]trace.SpanExporter, error) {
	var exporters []trace.SpanExporter

	for _, exporterName := range cfg.Exporters {
		switch exporterName {
		case "otlp":
			exporter, err := createOTLPTraceExporter(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
			}
			exporters = append(exporters, exporter)

		case "stdout":
			exporter, err := createStdoutTraceExporter(cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
			}
			exporters = append(exporters, exporter)

		default:
			// prometheus doesn't carry traces
			continue
		}
	}

	return exporters, nil
}

// createPrometheusReader registers an OpenTelemetry reader on a private
// registry and serves it at /metrics.
func createPrometheusReader(cfg Config) (metric.Reader, *metricsServer, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.PrometheusPort)))
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &metricsServer{
		listener: listener,
		server:   &http.Server{Handler: mux},
	}
	go func() {
		if err := srv.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "prometheus metrics server stopped: %v\n", err)
		}
	}()

	return exporter, srv, nil
}

func output(cfg Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}
	return os.Stdout
}

// createStdoutMetricExporter creates a stdout metrics exporter.
func createStdoutMetricExporter(cfg Config) (metric.Exporter, error) {
	return stdoutmetric.New(
		stdoutmetric.WithWriter(output(cfg)),
		stdoutmetric.WithPrettyPrint(),
	)
}

// createOTLPTraceExporter creates an OTLP trace exporter.
func createOTLPTraceExporter(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
	return otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(cfg.ExportTimeout),
	)
}

// createStdoutTraceExporter creates a stdout trace exporter.
func createStdoutTraceExporter(cfg Config) (trace.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithWriter(output(cfg)),
		stdouttrace.WithPrettyPrint(),
	)
}
