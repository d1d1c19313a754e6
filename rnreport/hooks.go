// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"context"
	"log/slog"
)

// CallHook provides observability callpoints around every page call of a
// report run. A hook installed on a Client is called sequentially for one
// run, but the same hook may serve several clients concurrently.
type CallHook interface {
	OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken)
	OnCallEnd(ctx context.Context, token HookToken, info CallInfo, stats *CallStatistics, err error)
}

// HookToken is an opaque value returned by OnCallStart and passed back to
// OnCallEnd. Only meaningful to the CallHook that created it.
type HookToken interface{}

// CallInfo describes one page call.
type CallInfo struct {
	Operation string // always OperationRunAnalyticsReport
	RunID     string // identifier shared by every page of one run
	ReportID  int
	Page      int // zero-based page index within the run
	Start     int
	Limit     int
	Filters   int // number of filters sent
}

// CallStatistics holds per-call counters.
type CallStatistics struct {
	RequestBytes  int64
	ResponseBytes int64
	Rows          int64
	Columns       int64
}

// record copies the counters of one completed call.
func (s *CallStatistics) record(raw *RawResponse, page *ReportPage) {
	if raw != nil {
		s.RequestBytes = raw.RequestBytes
		s.ResponseBytes = raw.ResponseBytes
	}
	if page != nil {
		s.Rows = int64(len(page.Rows))
		s.Columns = int64(len(page.Columns))
	}
}

// hookChain fans one hook slot out to several hooks, ending them in
// reverse order. A hook that panics is logged and skipped; only hooks whose
// OnCallStart returned are ended.
type hookChain []CallHook

type chainToken struct {
	tokens  []HookToken
	started []bool
}

func (c hookChain) start(ctx context.Context, info CallInfo, log *slog.Logger) (context.Context, *chainToken) {
	ct := &chainToken{tokens: make([]HookToken, len(c)), started: make([]bool, len(c))}
	for i, h := range c {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					log.Error("call hook start panic", "hook", i, "err", rv)
				}
			}()
			next, token := h.OnCallStart(ctx, info)
			if next != nil {
				ctx = next
			}
			ct.tokens[i] = token
			ct.started[i] = true
		}()
	}
	return ctx, ct
}

func (c hookChain) end(ctx context.Context, ct *chainToken, info CallInfo, stats *CallStatistics, err error, log *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if !ct.started[i] {
			continue
		}
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					log.Error("call hook end panic", "hook", i, "err", rv)
				}
			}()
			c[i].OnCallEnd(ctx, ct.tokens[i], info, stats, err)
		}()
	}
}
