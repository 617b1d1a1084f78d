package report

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// reportCSS is the print stylesheet; the renderer is self-contained so the
// binary needs no asset directory.
const reportCSS = `
body{font-family:'Inter','Helvetica Neue',Arial,sans-serif;color:#0f172a;line-height:1.55;}
.report-wrap{max-width:960px;margin:0 auto;padding:0.6rem;}
h1,h2{font-weight:700;letter-spacing:0.01em;}
h2{border-bottom:2px solid #e2e8f0;padding-bottom:0.3rem;margin-top:1.6rem;}
table{width:100%;border-collapse:collapse;border:1px solid #cbd5e1;font-size:0.8rem;margin:0.75rem 0;}
th,td{border:1px solid #cbd5e1;padding:0.35rem 0.45rem;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;text-align:left;}
hr{border:none;border-top:1px solid #e2e8f0;margin:1.25rem 0;}
strong{color:#1e293b;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
@media print{ @page{size:auto;margin:12mm;} body{background:#fff !important;} }
`

// RenderHTML converts the report markdown into a standalone HTML document.
func RenderHTML(markdown, title string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + title + "</title>" +
		"<style>" + reportCSS + "</style></head><body>" +
		"<div class='report-wrap'>" + content.String() + "</div>" +
		"</body></html>", nil
}
