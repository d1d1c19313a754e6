// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package fakeservice

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
)

const landingHTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>RightNow analytics fake &mdash; rnreport</title>
<style>
  body { font-family: system-ui, -apple-system, sans-serif; max-width: 900px;
         margin: 0 auto; padding: 40px 20px 0; color: #2c2c1e; background: #faf8f0; }
  h1 { color: #2d5016; font-weight: 700; text-align: center; }
  .meta { color: #6b6b5a; font-size: 0.9em; text-align: center; }
  code { font-family: monospace; background: #f0ece0; padding: 2px 6px;
          border-radius: 3px; font-size: 0.9em; }
  .card { border: 1px solid #f0ece0; border-radius: 8px; padding: 20px;
           margin-bottom: 16px; background: #fff; }
  .report-name { font-family: monospace; font-size: 1.1em; font-weight: 600; color: #2d5016; }
  .badge { display: inline-block; padding: 2px 8px; border-radius: 4px; font-size: 0.75em;
            font-weight: 600; background: #e8f5e0; color: #2d5016; }
  .none { color: #6b6b5a; font-style: italic; }
  footer { text-align: center; margin-top: 48px; padding: 20px 0;
            border-top: 1px solid #f0ece0; color: #6b6b5a; font-size: 0.85em; }
</style>
</head>
<body>
<h1>RightNow analytics fake</h1>
<p class="meta">POST SOAP <code>RunAnalyticsReport</code> requests to this URL &middot;
<a href="reports">reports as JSON</a></p>
%s
<footer>&copy; 2026 <a href="https://query.farm">Query.Farm LLC</a></footer>
</body>
</html>`

// reportInfo is the JSON shape of GET /reports.
type reportInfo struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

func buildLandingHTML(reports []Report) []byte {
	var cards strings.Builder
	if len(reports) == 0 {
		cards.WriteString(`<p class="none">No reports registered.</p>`)
	}
	for _, r := range reports {
		cards.WriteString(`<div class="card">`)
		fmt.Fprintf(&cards, `<span class="report-name">%d</span> %s <span class="badge">%d rows</span>`,
			r.ID, html.EscapeString(r.Name), len(r.Rows))
		cards.WriteString(`<p>`)
		for i, c := range r.Columns {
			if i > 0 {
				cards.WriteString(" ")
			}
			fmt.Fprintf(&cards, "<code>%s</code>", html.EscapeString(c))
		}
		cards.WriteString("</p></div>\n")
	}
	return []byte(fmt.Sprintf(landingHTMLTemplate, cards.String()))
}

func (s *Service) handleLanding(w http.ResponseWriter, r *http.Request) {
	reports := s.Reports()
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buildLandingHTML(reports))
	case "/reports":
		infos := make([]reportInfo, 0, len(reports))
		for _, rep := range reports {
			infos = append(infos, reportInfo{ID: rep.ID, Name: rep.Name, Columns: rep.Columns, Rows: len(rep.Rows)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(infos)
	default:
		http.NotFound(w, r)
	}
}
