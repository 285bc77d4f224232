package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ServiceNamespace groups the records API and its worker in trace backends.
const ServiceNamespace = "records"

// Trace exporters selectable through OTEL_TRACES_EXPORTER.
const (
	ExporterOTLP    = "otlp"
	ExporterConsole = "console"
	ExporterNone    = "none"
)

// Settings drives Setup. LoadSettings fills it from the environment.
type Settings struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogLevel       slog.Level
	// LogOutput defaults to stdout.
	LogOutput io.Writer

	TraceExporter string
	OTLPEndpoint  string
	OTLPInsecure  bool
}

// LoadSettings reads LOG_LEVEL, ENVIRONMENT, SERVICE_VERSION and the OTEL_* exporter
// variables. Unparseable values fall back to their defaults.
func LoadSettings(serviceName string) Settings {
	return Settings{
		ServiceName:    serviceName,
		ServiceVersion: envOrDefault("SERVICE_VERSION", "dev"),
		Environment:    envOrDefault("ENVIRONMENT", "local"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
		TraceExporter:  strings.ToLower(envOrDefault("OTEL_TRACES_EXPORTER", ExporterOTLP)),
		OTLPEndpoint:   strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTLPInsecure:   os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "0",
	}
}

// Instruments bundles the logger and providers shared by the API and the worker.
type Instruments struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	settings Settings
	closers  []func(context.Context) error
	queryLog *QueryLogSink
}

// Init is Setup with settings loaded from the environment.
func Init(ctx context.Context, serviceName string) (*Instruments, func(context.Context) error, error) {
	return Setup(ctx, LoadSettings(serviceName))
}

// Setup installs the process-wide logger, tracer provider, meter provider and
// propagators. The returned function flushes the query log, metrics and spans.
func Setup(ctx context.Context, settings Settings) (*Instruments, func(context.Context) error, error) {
	instruments := &Instruments{settings: settings}
	instruments.Logger = instruments.newLogger()

	res, err := recordsResource(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	tracerOptions := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	exporter, err := newSpanExporter(ctx, settings, instruments.Logger)
	if err != nil {
		return nil, nil, err
	}
	if exporter != nil {
		tracerOptions = append(tracerOptions, sdktrace.WithBatcher(exporter))
	}
	tracerProvider := sdktrace.NewTracerProvider(tracerOptions...)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewManualReader()),
	)
	otel.SetMeterProvider(meterProvider)

	instruments.TracerProvider = tracerProvider
	instruments.MeterProvider = meterProvider
	// Run in reverse order by shutdown.
	instruments.closers = []func(context.Context) error{tracerProvider.Shutdown, meterProvider.Shutdown}
	return instruments, instruments.shutdown, nil
}

func (i *Instruments) shutdown(ctx context.Context) error {
	var err error
	if i.queryLog != nil {
		err = errors.Join(err, i.queryLog.Close(ctx))
	}
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		err = errors.Join(err, i.closers[idx](ctx))
	}
	return err
}

// EnableQueryLog tees the process logger into writer through a buffered sink. The sink
// is flushed by the shutdown function returned from Setup. Only the first call wins.
func (i *Instruments) EnableQueryLog(writer QueryLogWriter, bufferSize int) *QueryLogSink {
	if i == nil || writer == nil || i.queryLog != nil {
		return nil
	}
	if i.Logger == nil {
		i.Logger = i.newLogger()
	}
	sink := NewQueryLogSink(writer, bufferSize)
	i.queryLog = sink
	i.Logger = slog.New(NewQueryLogHandler(i.Logger.Handler(), sink))
	slog.SetDefault(i.Logger)
	return sink
}

// Tracer returns a named tracer, falling back to the global provider.
func (i *Instruments) Tracer(name string) trace.Tracer {
	if i == nil || i.TracerProvider == nil {
		return otel.Tracer(name)
	}
	return i.TracerProvider.Tracer(name)
}

// Meter returns a named meter, or a no-op meter when none is configured.
func (i *Instruments) Meter(name string) metric.Meter {
	if i == nil || i.MeterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(name)
	}
	return i.MeterProvider.Meter(name)
}

func (i *Instruments) newLogger() *slog.Logger {
	out := i.settings.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     i.settings.LogLevel,
		AddSource: true,
	})).With(
		slog.String("service", i.settings.ServiceName),
		slog.String("environment", i.settings.Environment),
	)
	slog.SetDefault(logger)
	return logger
}

func recordsResource(ctx context.Context, settings Settings) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", settings.ServiceName),
			attribute.String("service.namespace", ServiceNamespace),
			attribute.String("service.version", settings.ServiceVersion),
			attribute.String("deployment.environment", settings.Environment),
		),
	)
}

// newSpanExporter returns nil for ExporterNone. An OTLP exporter that cannot be built
// degrades to the console exporter.
func newSpanExporter(ctx context.Context, settings Settings, logger *slog.Logger) (sdktrace.SpanExporter, error) {
	switch settings.TraceExporter {
	case ExporterNone:
		return nil, nil
	case ExporterConsole:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{}
	if settings.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(settings.OTLPEndpoint))
	}
	if settings.OTLPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err == nil {
		return exporter, nil
	}
	logger.Warn("OTLP trace exporter unavailable, using console exporter", slog.String("error", err.Error()))
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
