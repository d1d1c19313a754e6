// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import "time"

// ReportResult is the outcome of one report run across all its pages.
type ReportResult struct {
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
	// RowCount always equals len(Data).
	RowCount int `json:"row_count"`
	// ProcessingTime is the wall-clock span of the whole run in seconds,
	// from before the first call until after the last page was decoded.
	ProcessingTime float64 `json:"processing_time"`
	Pages          int     `json:"pages"`
}

// ProcessingDuration returns ProcessingTime as a time.Duration.
func (r *ReportResult) ProcessingDuration() time.Duration {
	return time.Duration(r.ProcessingTime * float64(time.Second))
}

// resultAggregator accumulates pages into one ReportResult. It is owned by
// a single run and never reused.
type resultAggregator struct {
	started    time.Time
	result     ReportResult
	columnsSet bool
}

func newResultAggregator() *resultAggregator {
	return &resultAggregator{
		started: time.Now(),
		result:  ReportResult{Columns: []string{}, Data: [][]string{}},
	}
}

// add appends a page. Columns are taken from the first page only.
func (a *resultAggregator) add(p *ReportPage) {
	if !a.columnsSet {
		a.result.Columns = p.Columns
		a.columnsSet = true
	}
	a.result.Data = append(a.result.Data, p.Rows...)
	a.result.Pages++
}

func (a *resultAggregator) rows() int {
	return len(a.result.Data)
}

func (a *resultAggregator) truncate(n int) {
	if n < len(a.result.Data) {
		a.result.Data = a.result.Data[:n]
	}
}

func (a *resultAggregator) elapsed() float64 {
	return time.Since(a.started).Seconds()
}

// finish stops the clock and returns the accumulated result.
func (a *resultAggregator) finish() *ReportResult {
	a.result.RowCount = len(a.result.Data)
	a.result.ProcessingTime = a.elapsed()
	return &a.result
}

// fail discards accumulated pages and returns an empty result that still
// carries the elapsed time.
func (a *resultAggregator) fail() *ReportResult {
	return &ReportResult{
		Columns:        []string{},
		Data:           [][]string{},
		ProcessingTime: a.elapsed(),
	}
}
