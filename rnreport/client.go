// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxPages bounds the number of calls one run may issue.
const DefaultMaxPages = 1000

// ReportRequest describes a report run.
type ReportRequest struct {
	ReportID int
	// Start is the zero-based first row.
	Start int
	// Limit is the page size; 0 fetches full pages of MaxPageSize. Every
	// page that comes back full is followed by another call, so the whole
	// report from Start onward is fetched either way.
	Limit   int
	Filters []ReportFilter
}

// Client runs analytics reports. Runs on one Client are serialized.
type Client struct {
	mu               sync.Mutex
	transport        RpcTransport
	assembler        *Assembler
	creds            Credentials
	logger           *slog.Logger
	hooks            hookChain
	maxPages         int
	rowLimit         int
	legacyPagination bool
}

// NewClient creates a Client calling through transport. The transport is
// responsible for applying the envelope patch (HTTPTransport does).
func NewClient(transport RpcTransport, creds Credentials) *Client {
	return &Client{
		transport: transport,
		assembler: NewAssembler(creds, ""),
		creds:     creds,
		logger:    slog.Default(),
		maxPages:  DefaultMaxPages,
	}
}

// NewSOAPClient creates a Client with an HTTPTransport for endpoint.
func NewSOAPClient(endpoint string, creds Credentials) *Client {
	return NewClient(NewHTTPTransport(endpoint), creds)
}

// Transport returns the transport the client calls through.
func (c *Client) Transport() RpcTransport {
	return c.transport
}

// SetAppID sets the application id sent in the ClientInfoHeader.
func (c *Client) SetAppID(appID string) {
	c.assembler = NewAssembler(c.creds, appID)
}

// SetLogger sets the logger for run diagnostics. nil restores slog.Default().
func (c *Client) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	c.logger = l
}

// SetCallHook replaces all call hooks with hook. nil removes them.
func (c *Client) SetCallHook(hook CallHook) {
	if hook == nil {
		c.hooks = nil
		return
	}
	c.hooks = hookChain{hook}
}

// AddCallHook adds a hook after the existing ones.
func (c *Client) AddCallHook(hook CallHook) {
	c.hooks = append(c.hooks, hook)
}

// SetMaxPages bounds the number of calls per run. A run that would need
// more fails with ErrPageLimit. Zero or less removes the bound. The call
// that returns a short page counts, so a report of exactly n full pages
// needs n+1 calls.
func (c *Client) SetMaxPages(n int) {
	c.maxPages = n
}

// SetRowLimit stops a run once n rows are accumulated, truncating the last
// page. Zero or less fetches the whole report.
func (c *Client) SetRowLimit(n int) {
	c.rowLimit = n
}

// SetLegacyPagination makes a run continue only when a page holds
// MaxPageSize rows. By default a run continues whenever a page is as large
// as the page size requested, so small page sizes also paginate.
func (c *Client) SetLegacyPagination(enabled bool) {
	c.legacyPagination = enabled
}

// Run runs report reportID from row start with page size limit (0 for
// MaxPageSize) and optional filters, fetching pages until one comes back
// short. On error the returned result is empty (RowCount 0) and rows from
// earlier pages are discarded.
func (c *Client) Run(ctx context.Context, reportID, start, limit int, filters ...ReportFilter) (*ReportResult, error) {
	return c.RunRequest(ctx, ReportRequest{
		ReportID: reportID,
		Start:    start,
		Limit:    limit,
		Filters:  filters,
	})
}

// RunRequest is Run with the arguments in a ReportRequest.
func (c *Client) RunRequest(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	agg := newResultAggregator()
	ctx, runID := ensureRunID(ctx)
	log := c.logger.With("run_id", runID, "report_id", req.ReportID)

	pageLimit := EffectiveLimit(req.Limit)
	continueAt := pageLimit
	if c.legacyPagination {
		continueAt = MaxPageSize
	}

	start := req.Start
	for page := 0; ; page++ {
		if c.maxPages > 0 && page >= c.maxPages {
			err := &ReportError{
				Kind:    KindPageLimit,
				Message: fmt.Sprintf("run needs more than %d pages", c.maxPages),
				Page:    page,
			}
			log.Warn("report run aborted", "err", err, "rows", agg.rows())
			return agg.fail(), err
		}
		if err := ctx.Err(); err != nil {
			rerr := &ReportError{Kind: KindTransportFault, Message: "run cancelled", Page: page, Err: err}
			log.Warn("report run aborted", "err", rerr)
			return agg.fail(), rerr
		}

		info := CallInfo{
			Operation: OperationRunAnalyticsReport,
			RunID:     runID,
			ReportID:  req.ReportID,
			Page:      page,
			Start:     start,
			Limit:     pageLimit,
			Filters:   len(req.Filters),
		}
		p, err := c.fetchPage(ctx, info, req.Filters)
		if err != nil {
			log.Warn("report page failed", "page", page, "start", start, "err", err)
			return agg.fail(), err
		}
		agg.add(p)
		log.Debug("report page fetched", "page", page, "start", start, "limit", pageLimit, "rows", len(p.Rows))

		if c.rowLimit > 0 && agg.rows() >= c.rowLimit {
			agg.truncate(c.rowLimit)
			break
		}
		if len(p.Rows) < continueAt {
			break
		}
		start = req.Start + agg.rows()
	}

	result := agg.finish()
	log.Info("report run complete", "rows", result.RowCount, "pages", result.Pages,
		"processing_time", result.ProcessingTime)
	return result, nil
}

// fetchPage issues one call and decodes its page, reporting to the hooks.
func (c *Client) fetchPage(ctx context.Context, info CallInfo, filters []ReportFilter) (*ReportPage, error) {
	payload, err := c.assembler.Build(info.ReportID, info.Start, info.Limit, filters)
	if err != nil {
		return nil, atPage(err, info.Page)
	}

	stats := &CallStatistics{}
	var hookState *chainToken
	if len(c.hooks) > 0 {
		ctx, hookState = c.hooks.start(ctx, info, c.logger)
	}

	var page *ReportPage
	raw, err := c.transport.Call(ctx, info.Operation, payload)
	if err == nil {
		page, err = ParseResponse(raw)
		stats.record(raw, page)
	}
	if err != nil {
		err = atPage(asReportError(err), info.Page)
	}

	if hookState != nil {
		c.hooks.end(ctx, hookState, info, stats, err, c.logger)
	}

	return page, err
}

// asReportError classifies an error returned by a transport. Errors that
// are not already a *ReportError are transport faults.
func asReportError(err error) error {
	var re *ReportError
	if errors.As(err, &re) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return transportFault("call cancelled", err)
	}
	return transportFault("calling "+OperationRunAnalyticsReport, err)
}

// atPage returns err with the page index recorded on its *ReportError. The
// error is copied so shared sentinels are never modified.
func atPage(err error, page int) error {
	re, ok := err.(*ReportError)
	if !ok {
		return err
	}
	cp := *re
	cp.Page = page
	return &cp
}
