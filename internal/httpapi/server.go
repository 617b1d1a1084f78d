package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/emspark/internal/assistant"
	"github.com/joelkehle/emspark/internal/queryparse"
	"github.com/joelkehle/emspark/internal/report"
)

// Answerer resolves a free-text market query into a markdown report.
type Answerer interface {
	Answer(ctx context.Context, query string, progress func(string)) (assistant.Answer, error)
}

// PDFRenderer converts a markdown report into a PDF document.
type PDFRenderer interface {
	Render(ctx context.Context, markdown, title string) ([]byte, error)
}

type Server struct {
	answerer Answerer
	pdf      PDFRenderer
	timeout  time.Duration
}

// NewServer builds the HTTP handler. pdf may be nil; the PDF endpoint then
// reports 503.
func NewServer(answerer Answerer, pdf PDFRenderer) http.Handler {
	s := &Server{
		answerer: answerer,
		pdf:      pdf,
		timeout:  90 * time.Second,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/query", s.handleQuery)
	mux.HandleFunc("/v1/query/stream", s.handleQueryStream)
	mux.HandleFunc("/v1/query/pdf", s.handleQueryPDF)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"message": message,
		},
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

// emptyQueryHelp mirrors the product's chat onboarding: shown whenever a
// request arrives without a usable query.
const emptyQueryHelp = "Query is required. Try phrasings like: " +
	`"DAM price for 15 Jan 2025", ` +
	`"compare GDAM and RTM for last week", ` +
	`"RTM prices for slots 20-50 yesterday", ` +
	`"daily average DAM price for November 2024"`

type queryRequest struct {
	Query string `json:"query"`
	// Format "html" adds a rendered HTML document to the response.
	Format string `json:"format"`
}

func (s *Server) resolve(ctx context.Context, query string, progress func(string)) (assistant.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.answerer.Answer(ctx, query, progress)
}

func specSummaries(specs []queryparse.QuerySpec) []map[string]any {
	out := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		out = append(out, map[string]any{
			"market":      spec.Market,
			"start_date":  spec.StartDate.Format("2006-01-02"),
			"end_date":    spec.EndDate.Format("2006-01-02"),
			"granularity": spec.Granularity,
			"stat":        spec.Stat,
			"auto_added":  spec.AutoAdded,
		})
	}
	return out
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	var req queryRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, 400, emptyQueryHelp)
		return
	}

	requestID := uuid.NewString()
	answer, err := s.resolve(r.Context(), req.Query, nil)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	payload := map[string]any{
		"ok":         true,
		"request_id": requestID,
		"markdown":   answer.Markdown,
		"specs":      specSummaries(answer.Specs),
	}
	if strings.EqualFold(req.Format, "html") {
		html, err := report.RenderHTML(answer.Markdown, "EM-SPARK Market Report")
		if err != nil {
			writeError(w, 500, "render HTML: "+err.Error())
			return
		}
		payload["html"] = html
	}
	writeJSON(w, 200, payload)
}

// handleQueryStream answers over server-sent events: progress lines first,
// then a single result event carrying the full response payload.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, 400, emptyQueryHelp)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriter(w)
	writeEvent := func(event string, payload any) bool {
		blob, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		if _, err := bw.WriteString(fmt.Sprintf("event: %s\ndata: ", event)); err != nil {
			return false
		}
		if _, err := bw.Write(blob); err != nil {
			return false
		}
		if _, err := bw.WriteString("\n\n"); err != nil {
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	answer, err := s.resolve(r.Context(), query, func(text string) {
		writeEvent("progress", map[string]any{"text": text})
	})
	if err != nil {
		writeEvent("error", map[string]any{"message": err.Error()})
		return
	}
	writeEvent("result", map[string]any{
		"markdown": answer.Markdown,
		"specs":    specSummaries(answer.Specs),
	})
}

func (s *Server) handleQueryPDF(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.pdf == nil {
		writeError(w, 503, "PDF rendering is not configured")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, 400, emptyQueryHelp)
		return
	}

	answer, err := s.resolve(r.Context(), query, nil)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	blob, err := s.pdf.Render(r.Context(), answer.Markdown, "EM-SPARK Market Report")
	if err != nil {
		writeError(w, 500, "render PDF: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "emspark-report-"+time.Now().UTC().Format("20060102-150405")+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "service": "emspark", "time": time.Now().UTC().Format(time.RFC3339)})
}
