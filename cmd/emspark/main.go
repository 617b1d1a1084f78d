package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/joelkehle/emspark/internal/assistant"
	"github.com/joelkehle/emspark/internal/config"
	"github.com/joelkehle/emspark/internal/httpapi"
	"github.com/joelkehle/emspark/internal/insight"
	"github.com/joelkehle/emspark/internal/queryparse"
	"github.com/joelkehle/emspark/internal/report"
	"github.com/joelkehle/emspark/internal/store"
)

func main() {
	configFlag := flag.String("config", "", "path to YAML config file")
	dbFlag := flag.String("db", "", "path to SQLite price database (overrides config)")
	addrFlag := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbFlag != "" {
		cfg.Database.Path = *dbFlag
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Tracing.OTLPEndpoint != "" {
		shutdown, err := setupTracing(ctx, cfg.Tracing.OTLPEndpoint)
		if err != nil {
			log.Fatalf("setup tracing: %v", err)
		}
		defer shutdown()
		log.Printf("exporting traces to %s", cfg.Tracing.OTLPEndpoint)
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open price store (%s): %v", cfg.Database.Path, err)
	}
	defer st.Close()
	log.Printf("using price store at %s", cfg.Database.Path)

	parser := queryparse.NewParser(queryparse.Statistic(cfg.Assistant.DefaultStat))
	var insights *insight.Generator
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		specParser, err := queryparse.NewAnthropicSpecParserFromEnv()
		if err != nil {
			log.Fatalf("llm parse tier: %v", err)
		}
		parser.LLM = specParser

		caller, err := insight.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Fatalf("llm insights: %v", err)
		}
		insights = insight.NewGenerator(caller)
		log.Printf("LLM parse tier and insights enabled")
	} else {
		log.Printf("ANTHROPIC_API_KEY not set; deterministic parsing and fallback insights only")
	}

	a := assistant.New(st, parser, insights)
	handler := httpapi.NewServer(a, report.NewChromiumPDFRenderer())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("%s listening on %s", cfg.Assistant.Name, cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func setupTracing(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName("emspark")))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}
