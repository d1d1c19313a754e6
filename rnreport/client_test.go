// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport serves a report of total numbered rows and records every
// call it receives.
type fakeTransport struct {
	mu      sync.Mutex
	total   int
	faultAt int // 1-based call number answered with a fault; 0 for never
	fault   *Fault
	err     error
	calls   []*RequestPayload
	onCall  func(n int)
}

func (f *fakeTransport) Call(ctx context.Context, operation string, payload *RequestPayload) (*RawResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, payload)
	n := len(f.calls)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}

	if operation != OperationRunAnalyticsReport {
		return nil, fmt.Errorf("unexpected operation %q", operation)
	}
	if f.err != nil {
		return nil, f.err
	}
	if n == f.faultAt {
		fault := f.fault
		if fault == nil {
			fault = &Fault{Code: "soapenv:Server", String: "report failed"}
		}
		return &RawResponse{Fault: fault}, nil
	}

	var rows []string
	for i := payload.Start(); i < f.total && len(rows) < payload.Limit(); i++ {
		rows = append(rows, fmt.Sprintf("%d,row %d", i, i))
	}
	table := &CSVTable{Columns: "id,label"}
	if len(rows) > 0 {
		table.Rows = NewRowSet(rows)
	}
	return &RawResponse{Table: table, RequestBytes: 100, ResponseBytes: int64(10 * len(rows))}, nil
}

func (f *fakeTransport) starts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Start()
	}
	return out
}

func newTestClient(tr RpcTransport) *Client {
	c := NewClient(tr, testCreds)
	c.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c
}

func TestRunCallCount(t *testing.T) {
	cases := []struct {
		total, limit, calls int
	}{
		{0, 0, 1},
		{1, 0, 1},
		{9999, 0, 1},
		{25000, 0, 3},
		{7, 3, 3},
		{10, 4, 3},
		{5, 10, 1},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("total=%d/limit=%d", tc.total, tc.limit), func(t *testing.T) {
			tr := &fakeTransport{total: tc.total}
			res, err := newTestClient(tr).Run(context.Background(), 1, 0, tc.limit)
			require.NoError(t, err)
			assert.Len(t, tr.calls, tc.calls)
			assert.Equal(t, tc.total, res.RowCount)
			assert.Len(t, res.Data, tc.total)
			assert.Equal(t, tc.calls, res.Pages)
		})
	}
}

func TestRunFullPageThenEmpty(t *testing.T) {
	tr := &fakeTransport{total: MaxPageSize}
	res, err := newTestClient(tr).Run(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, tr.calls, 2)
	assert.Equal(t, MaxPageSize, res.RowCount)
	assert.Equal(t, []int{0, MaxPageSize}, tr.starts())
	assert.Equal(t, []string{"id", "label"}, res.Columns)
}

func TestRunRowsInOrder(t *testing.T) {
	tr := &fakeTransport{total: 10}
	res, err := newTestClient(tr).Run(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 8}, tr.starts())
	require.Equal(t, 8, res.RowCount)
	for i, row := range res.Data {
		assert.Equal(t, []string{fmt.Sprint(i + 2), fmt.Sprintf("row %d", i+2)}, row)
	}
	assert.GreaterOrEqual(t, res.ProcessingTime, 0.0)
}

func TestRunLegacyPagination(t *testing.T) {
	tr := &fakeTransport{total: 10}
	c := newTestClient(tr)
	c.SetLegacyPagination(true)
	res, err := c.Run(context.Background(), 1, 0, 4)
	require.NoError(t, err)
	assert.Len(t, tr.calls, 1)
	assert.Equal(t, 4, res.RowCount)
}

func TestRunFaultOnFirstCall(t *testing.T) {
	tr := &fakeTransport{total: 50000, faultAt: 1}
	res, err := newTestClient(tr).Run(context.Background(), 1, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceFault))
	assert.Len(t, tr.calls, 1)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.RowCount)
	assert.Empty(t, res.Data)
	assert.GreaterOrEqual(t, res.ProcessingTime, 0.0)
}

func TestRunFaultDiscardsEarlierPages(t *testing.T) {
	tr := &fakeTransport{total: 30, faultAt: 3}
	res, err := newTestClient(tr).Run(context.Background(), 1, 0, 10)
	require.Error(t, err)
	var re *ReportError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Page)
	assert.Len(t, tr.calls, 3)
	assert.Equal(t, 0, res.RowCount)
	assert.Empty(t, res.Data)
}

func TestRunTransportError(t *testing.T) {
	tr := &fakeTransport{total: 10, err: errors.New("connection refused")}
	_, err := newTestClient(tr).Run(context.Background(), 1, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportFault))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunInvalidFilterMakesNoCall(t *testing.T) {
	tr := &fakeTransport{total: 10}
	res, err := newTestClient(tr).Run(context.Background(), 1, 0, 0, Filter("", OpEqual, "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFilterSpec))
	assert.Empty(t, tr.calls)
	assert.Equal(t, 0, res.RowCount)
}

func TestRunSendsFiltersOnEveryPage(t *testing.T) {
	tr := &fakeTransport{total: 5}
	_, err := newTestClient(tr).Run(context.Background(), 9, 0, 2,
		Filter("Status", OpEqual, "Open"), Filter("Queue", OpInList, "1,2"))
	require.NoError(t, err)
	require.Len(t, tr.calls, 3)
	for _, c := range tr.calls {
		assert.Equal(t, 9, c.ReportID())
		require.Len(t, c.Filters(), 2)
		assert.Equal(t, "Status", c.Filters()[0].Name)
	}
}

func TestRunMaxPages(t *testing.T) {
	tr := &fakeTransport{total: 100}
	c := newTestClient(tr)
	c.SetMaxPages(3)
	res, err := c.Run(context.Background(), 1, 0, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPageLimit))
	assert.Len(t, tr.calls, 3)
	assert.Equal(t, 0, res.RowCount)

	c.SetMaxPages(0)
	res, err = c.Run(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, res.RowCount)
}

func TestRunMaxPagesCountsConfirmingEmptyPage(t *testing.T) {
	tr := &fakeTransport{total: 20}
	c := newTestClient(tr)
	c.SetMaxPages(2)
	_, err := c.Run(context.Background(), 1, 0, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPageLimit))
	assert.Len(t, tr.calls, 2)

	c.SetMaxPages(3)
	res, err := c.Run(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, res.RowCount)
	assert.Equal(t, 3, res.Pages)
}

func TestRunProcessingTimeSpansAllPages(t *testing.T) {
	tr := &fakeTransport{total: 25}
	tr.onCall = func(int) { time.Sleep(50 * time.Millisecond) }
	res, err := newTestClient(tr).Run(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	assert.Len(t, tr.calls, 3)
	assert.GreaterOrEqual(t, res.ProcessingTime, 0.15)
	assert.GreaterOrEqual(t, res.ProcessingDuration(), 150*time.Millisecond)
}

func TestRunRowLimit(t *testing.T) {
	tr := &fakeTransport{total: 100}
	c := newTestClient(tr)
	c.SetRowLimit(25)
	res, err := c.Run(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, res.RowCount)
	assert.Len(t, tr.calls, 3)
	assert.Equal(t, []string{"24", "row 24"}, res.Data[24])
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &fakeTransport{total: 100}
	tr.onCall = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	res, err := newTestClient(tr).Run(ctx, 1, 0, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportFault))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, tr.calls, 2)
	assert.Equal(t, 0, res.RowCount)
}

func TestRunAppID(t *testing.T) {
	tr := &fakeTransport{total: 1}
	c := newTestClient(tr)
	c.SetAppID("reporting-job")
	_, err := c.Run(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "reporting-job", tr.calls[0].AppID())
}

type recordingHook struct {
	mu     sync.Mutex
	events []string
	stats  []CallStatistics
	runIDs map[string]bool
}

func (h *recordingHook) OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fmt.Sprintf("start %d@%d", info.Page, info.Start))
	if h.runIDs == nil {
		h.runIDs = map[string]bool{}
	}
	h.runIDs[info.RunID] = true
	return ctx, info.Page
}

func (h *recordingHook) OnCallEnd(ctx context.Context, token HookToken, info CallInfo, stats *CallStatistics, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fmt.Sprintf("end %d token=%v err=%t", info.Page, token, err != nil))
	h.stats = append(h.stats, *stats)
}

func TestCallHooks(t *testing.T) {
	tr := &fakeTransport{total: 5}
	hook := &recordingHook{}
	c := newTestClient(tr)
	c.SetCallHook(hook)

	_, err := c.Run(WithRunID(context.Background(), "run-1"), 1, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start 0@0", "end 0 token=0 err=false",
		"start 1@2", "end 1 token=1 err=false",
		"start 2@4", "end 2 token=2 err=false",
	}, hook.events)
	assert.Equal(t, map[string]bool{"run-1": true}, hook.runIDs)
	assert.Equal(t, int64(2), hook.stats[0].Rows)
	assert.Equal(t, int64(1), hook.stats[2].Rows)
	assert.Equal(t, int64(2), hook.stats[0].Columns)
	assert.Equal(t, int64(100), hook.stats[0].RequestBytes)
}

func TestCallHooksSeeFailure(t *testing.T) {
	tr := &fakeTransport{total: 5, faultAt: 1}
	hook := &recordingHook{}
	c := newTestClient(tr)
	c.SetCallHook(hook)
	_, err := c.Run(context.Background(), 1, 0, 0)
	require.Error(t, err)
	assert.Equal(t, []string{"start 0@0", "end 0 token=0 err=true"}, hook.events)
	assert.Len(t, hook.runIDs, 1)
}

type panicHook struct{}

func (panicHook) OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken) {
	panic("start")
}

func (panicHook) OnCallEnd(ctx context.Context, token HookToken, info CallInfo, stats *CallStatistics, err error) {
	panic("end")
}

func TestCallHookChainAndPanics(t *testing.T) {
	tr := &fakeTransport{total: 3}
	first, second := &recordingHook{}, &recordingHook{}
	c := newTestClient(tr)
	c.AddCallHook(first)
	c.AddCallHook(second)
	_, err := c.Run(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, first.events, second.events)

	c.SetCallHook(panicHook{})
	res, err := c.Run(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowCount)

	c.SetCallHook(nil)
	_, err = c.Run(context.Background(), 1, 0, 0)
	require.NoError(t, err)
}

func TestCallHookPanicEndsStartedHooks(t *testing.T) {
	tr := &fakeTransport{total: 3}
	first, last := &recordingHook{}, &recordingHook{}
	c := newTestClient(tr)
	c.AddCallHook(first)
	c.AddCallHook(panicHook{})
	c.AddCallHook(last)

	res, err := c.Run(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowCount)
	want := []string{"start 0@0", "end 0 token=0 err=false"}
	assert.Equal(t, want, first.events)
	assert.Equal(t, want, last.events)
}

type startPanicHook struct {
	ended int
}

func (h *startPanicHook) OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken) {
	panic("start")
}

func (h *startPanicHook) OnCallEnd(ctx context.Context, token HookToken, info CallInfo, stats *CallStatistics, err error) {
	h.ended++
}

func TestCallHookNotEndedWhenStartPanics(t *testing.T) {
	tr := &fakeTransport{total: 25}
	hook := &startPanicHook{}
	c := newTestClient(tr)
	c.SetCallHook(hook)
	_, err := c.Run(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, hook.ended)
}

func TestRunSerialized(t *testing.T) {
	var active, maxActive int
	var mu sync.Mutex
	tr := &fakeTransport{total: 30}
	tr.onCall = func(int) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}
	c := newTestClient(tr)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Run(context.Background(), 1, 0, 10)
			assert.NoError(t, err)
			assert.Equal(t, 30, res.RowCount)
		}()
	}
	wg.Wait()
	assert.Len(t, tr.calls, 16)
	assert.Equal(t, 1, maxActive)
}
