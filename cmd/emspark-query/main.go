package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joelkehle/emspark/internal/assistant"
	"github.com/joelkehle/emspark/internal/config"
	"github.com/joelkehle/emspark/internal/insight"
	"github.com/joelkehle/emspark/internal/queryparse"
	"github.com/joelkehle/emspark/internal/report"
	"github.com/joelkehle/emspark/internal/store"
)

// emspark-query answers a single market query from the command line and
// writes the report to stdout (markdown), or to a file as HTML or PDF.
func main() {
	configFlag := flag.String("config", "", "path to YAML config file")
	dbFlag := flag.String("db", "", "path to SQLite price database (overrides config)")
	outFlag := flag.String("o", "", "output file; .html and .pdf get rendered, anything else is markdown")
	quietFlag := flag.Bool("q", false, "suppress progress output")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: emspark-query [flags] <query>")
		fmt.Fprintln(os.Stderr, `example: emspark-query "compare DAM and GDAM for last week"`)
		os.Exit(2)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbFlag != "" {
		cfg.Database.Path = *dbFlag
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open price store (%s): %v", cfg.Database.Path, err)
	}
	defer st.Close()

	parser := queryparse.NewParser(queryparse.Statistic(cfg.Assistant.DefaultStat))
	var insights *insight.Generator
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		if specParser, err := queryparse.NewAnthropicSpecParserFromEnv(); err == nil {
			parser.LLM = specParser
		}
		if caller, err := insight.NewAnthropicCallerFromEnv(); err == nil {
			insights = insight.NewGenerator(caller)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progress := func(text string) {
		if !*quietFlag {
			fmt.Fprintln(os.Stderr, text)
		}
	}
	answer, err := assistant.New(st, parser, insights).Answer(ctx, query, progress)
	if err != nil {
		log.Fatalf("answer query: %v", err)
	}

	switch {
	case *outFlag == "":
		fmt.Println(answer.Markdown)
	case strings.HasSuffix(*outFlag, ".html"):
		html, err := report.RenderHTML(answer.Markdown, "EM-SPARK Market Report")
		if err != nil {
			log.Fatalf("render HTML: %v", err)
		}
		if err := os.WriteFile(*outFlag, []byte(html), 0o644); err != nil {
			log.Fatalf("write %s: %v", *outFlag, err)
		}
	case strings.HasSuffix(*outFlag, ".pdf"):
		blob, err := report.NewChromiumPDFRenderer().Render(ctx, answer.Markdown, "EM-SPARK Market Report")
		if err != nil {
			log.Fatalf("render PDF: %v", err)
		}
		if err := os.WriteFile(*outFlag, blob, 0o644); err != nil {
			log.Fatalf("write %s: %v", *outFlag, err)
		}
	default:
		if err := os.WriteFile(*outFlag, []byte(answer.Markdown), 0o644); err != nil {
			log.Fatalf("write %s: %v", *outFlag, err)
		}
	}
}
