// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package fakeservice

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

const (
	nsSoapEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	nsMessages     = "urn:messages.ws.rightnow.com/v1_2"
	nsObjects      = "urn:objects.ws.rightnow.com/v1_2"

	maxPageSize = 10000
)

// Report is one saved analytics report served by the fake.
type Report struct {
	ID      int
	Name    string
	Columns []string
	Rows    [][]string
}

// Request records one RunAnalyticsReport call the service accepted for
// processing.
type Request struct {
	ReportID int
	Start    int
	Limit    int
	AppID    string
	Filters  []RequestFilter
}

// RequestFilter is a filter as received on the wire.
type RequestFilter struct {
	Name     string
	Operator int
	Value    string
}

// Service is an http.Handler emulating the RunAnalyticsReport operation.
type Service struct {
	mu       sync.Mutex
	reports  map[int]*Report
	username string
	password string
	gzip     bool
	pageCap  int
	failAt   map[int]string
	requests []Request
	calls    int
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates an empty service that accepts any credentials.
func New() *Service {
	s := &Service{
		reports: make(map[int]*Report),
		pageCap: maxPageSize,
		failAt:  make(map[int]string),
		logger:  slog.Default(),
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /", s.handleSOAP)
	s.mux.HandleFunc("GET /", s.handleLanding)
	return s
}

// AddReport registers a report, replacing any report with the same id.
func (s *Service) AddReport(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.reports[r.ID] = &cp
}

// SetCredentials makes the service require username and password in the
// WS-Security header.
func (s *Service) SetCredentials(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// SetGzip enables gzip responses for clients that accept them.
func (s *Service) SetGzip(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gzip = enabled
}

// SetPageCap lowers the most rows returned per call below 10000.
func (s *Service) SetPageCap(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > maxPageSize {
		n = maxPageSize
	}
	s.pageCap = n
}

// FailCall makes the n-th call (1-based, counting every POST) answer with
// a server fault carrying message.
func (s *Service) FailCall(n int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt[n] = message
}

// SetLogger sets the logger for request diagnostics.
func (s *Service) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	s.logger = l
}

// Calls returns the number of POST requests received.
func (s *Service) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Requests returns the calls that were decoded and authenticated.
func (s *Service) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Reports returns the registered reports ordered by id.
func (s *Service) Reports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Service) handleSOAP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	failMsg, fail := s.failAt[call]
	useGzip := s.gzip
	s.mu.Unlock()

	gz := useGzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")

	body, err := readRequest(r)
	if err != nil {
		s.writeFault(w, gz, "soapenv:Client", fmt.Sprintf("unreadable request: %v", err))
		return
	}

	var env requestEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		s.writeFault(w, gz, "soapenv:Client", fmt.Sprintf("malformed envelope: %v", err))
		return
	}
	run := env.Body.Run
	if run == nil {
		s.writeFault(w, gz, "soapenv:Client", "unsupported operation")
		return
	}

	tok := env.Header.Security.UsernameToken
	if !s.authenticate(tok.Username, tok.Password) {
		s.writeFault(w, gz, "wsse:FailedAuthentication", "Authentication failed")
		return
	}

	req := Request{
		ReportID: run.Report.ID.ID,
		Start:    run.Start,
		Limit:    run.Limit,
		AppID:    env.Header.ClientInfo.AppID,
	}
	for _, f := range run.Report.Filters {
		if len(f.Nested) > 0 {
			s.writeFault(w, gz, "soapenv:Client",
				"Unexpected element Filters: filters must not be wrapped in a Filters collection")
			return
		}
		req.Filters = append(req.Filters, RequestFilter{Name: f.Name, Operator: f.Operator.ID.ID, Value: f.Values})
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	report, ok := s.reports[req.ReportID]
	pageCap := s.pageCap
	s.mu.Unlock()

	s.logger.Debug("fake RunAnalyticsReport", "call", call, "report_id", req.ReportID,
		"start", req.Start, "limit", req.Limit, "filters", len(req.Filters))

	if fail {
		s.writeFault(w, gz, "soapenv:Server", failMsg)
		return
	}
	if !ok {
		s.writeFault(w, gz, "soapenv:Server", fmt.Sprintf("Invalid report ID: %d", req.ReportID))
		return
	}

	rows, err := filterRows(report, req.Filters)
	if err != nil {
		s.writeFault(w, gz, "soapenv:Client", err.Error())
		return
	}

	limit := req.Limit
	if limit <= 0 || limit > pageCap {
		limit = pageCap
	}
	start := max(req.Start, 0)
	end := min(start+limit, len(rows))
	if start > len(rows) {
		start = len(rows)
	}

	out, err := encodeResponse(report, rows[start:end])
	if err != nil {
		s.writeFault(w, gz, "soapenv:Server", err.Error())
		return
	}
	writeXML(w, http.StatusOK, out, gz)
}

func (s *Service) authenticate(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.username == "" && s.password == "" {
		return true
	}
	return username == s.username && password == s.password
}

func readRequest(r *http.Request) ([]byte, error) {
	var rd io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		rd = zr
	}
	return io.ReadAll(rd)
}

// filterRows returns the rows of report matching every filter. Filters
// name report columns, case-insensitively.
func filterRows(report *Report, filters []RequestFilter) ([][]string, error) {
	if len(filters) == 0 {
		return report.Rows, nil
	}
	type compiled struct {
		col   int
		match func(string) bool
	}
	var cs []compiled
	for _, f := range filters {
		col := -1
		for i, c := range report.Columns {
			if strings.EqualFold(c, f.Name) {
				col = i
				break
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("invalid filter name: %s", f.Name)
		}
		m, err := matcher(f.Operator, f.Value)
		if err != nil {
			return nil, err
		}
		if m != nil {
			cs = append(cs, compiled{col: col, match: m})
		}
	}

	var out [][]string
	for _, row := range report.Rows {
		keep := true
		for _, c := range cs {
			v := ""
			if c.col < len(row) {
				v = row[c.col]
			}
			if !c.match(v) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

// matcher returns the predicate for an operator id. Operators the fake
// does not evaluate return a nil predicate and match every row.
func matcher(op int, value string) (func(string) bool, error) {
	switch op {
	case 1:
		return func(v string) bool { return v == value }, nil
	case 2, 14:
		return func(v string) bool { return v != value }, nil
	case 7, 8, 15:
		re, err := likePattern(value)
		if err != nil {
			return nil, err
		}
		if op == 7 {
			return re.MatchString, nil
		}
		return func(v string) bool { return !re.MatchString(v) }, nil
	case 10, 11:
		set := make(map[string]bool)
		for _, item := range strings.Split(value, ",") {
			set[strings.TrimSpace(item)] = true
		}
		if op == 10 {
			return func(v string) bool { return set[v] }, nil
		}
		return func(v string) bool { return !set[v] }, nil
	case 19, 20:
		re, err := regexp.Compile(value)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression: %v", err)
		}
		if op == 19 {
			return re.MatchString, nil
		}
		return func(v string) bool { return !re.MatchString(v) }, nil
	default:
		return nil, nil
	}
}

// likePattern compiles a SQL LIKE pattern (% and _ wildcards).
func likePattern(p string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// csvLine encodes one record without the trailing newline.
func csvLine(fields []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func encodeResponse(report *Report, rows [][]string) ([]byte, error) {
	header, err := csvLine(report.Columns)
	if err != nil {
		return nil, err
	}
	table := csvTable{Name: report.Name, Columns: header}
	if len(rows) > 0 {
		table.Rows = &csvRows{}
		for _, row := range rows {
			line, err := csvLine(row)
			if err != nil {
				return nil, err
			}
			table.Rows.Row = append(table.Rows.Row, line)
		}
	}
	env := responseEnvelope{
		SoapEnv: nsSoapEnvelope,
		Body: responseBody{Response: &runResponse{
			NS: nsMessages,
			TableSet: csvTableSet{Tables: csvTables{
				NS:    nsObjects,
				Table: table,
			}},
		}},
	}
	return marshalEnvelope(env)
}

func marshalEnvelope(env responseEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encoding response envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) writeFault(w http.ResponseWriter, gz bool, code, message string) {
	s.logger.Debug("fake RunAnalyticsReport fault", "code", code, "message", message)
	env := responseEnvelope{
		SoapEnv: nsSoapEnvelope,
		Body: responseBody{Fault: &soapFault{
			Code:   code,
			String: message,
		}},
	}
	out, err := marshalEnvelope(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeXML(w, http.StatusInternalServerError, out, gz)
}

func writeXML(w http.ResponseWriter, status int, body []byte, gz bool) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if !gz {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(status)
	zw := gzip.NewWriter(w)
	_, _ = zw.Write(body)
	_ = zw.Close()
}
