// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/Query-farm/rightnow-report/fakeservice"
	"github.com/Query-farm/rightnow-report/rnreport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = rnreport.Credentials{Username: "api", Password: "hunter2"}

func startFake(t *testing.T, rows int) (*fakeservice.Service, *rnreport.Client) {
	t.Helper()
	svc := fakeservice.New()
	svc.SetCredentials(creds.Username, creds.Password)
	svc.AddReport(fakeservice.IncidentReport(100, rows))
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return svc, rnreport.NewSOAPClient(srv.URL, creds)
}

func TestEndToEndPagination(t *testing.T) {
	svc, client := startFake(t, 25000)
	res, err := client.Run(context.Background(), 100, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 25000, res.RowCount)
	assert.Equal(t, 3, svc.Calls())
	assert.Equal(t, fakeservice.IncidentColumns, res.Columns)

	want := fakeservice.IncidentReport(100, 25000).Rows
	assert.Equal(t, want[0], res.Data[0])
	assert.Equal(t, want[10000], res.Data[10000])
	assert.Equal(t, want[24999], res.Data[24999])
	assert.Equal(t, want[2], res.Data[2], "quoted subject")
	assert.Equal(t, want[3], res.Data[3], "multi-line subject")
	assert.Equal(t, want[4], res.Data[4], "empty subject")
}

func TestEndToEndExactMultiple(t *testing.T) {
	svc, client := startFake(t, 10000)
	res, err := client.Run(context.Background(), 100, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10000, res.RowCount)
	assert.Equal(t, 2, svc.Calls())
}

func TestEndToEndSingleRow(t *testing.T) {
	_, client := startFake(t, 1)
	res, err := client.Run(context.Background(), 100, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{fakeservice.IncidentReport(100, 1).Rows[0]}, res.Data)
}

func TestEndToEndFilters(t *testing.T) {
	svc, client := startFake(t, 40)
	res, err := client.Run(context.Background(), 100, 0, 5,
		rnreport.Filter("Status", rnreport.OpEqual, "Solved"),
		rnreport.Filter("Queue", rnreport.OpInList, "Tier 1,Billing"),
	)
	require.NoError(t, err)

	var want [][]string
	for _, row := range fakeservice.IncidentReport(100, 40).Rows {
		if row[2] == "Solved" && (row[3] == "Tier 1" || row[3] == "Billing") {
			want = append(want, row)
		}
	}
	require.NotEmpty(t, want)
	assert.Equal(t, want, res.Data)
	for _, req := range svc.Requests() {
		require.Len(t, req.Filters, 2)
		assert.Equal(t, fakeservice.RequestFilter{Name: "Status", Operator: 1, Value: "Solved"}, req.Filters[0])
	}
}

func TestEndToEndUnpatchedBodyRejected(t *testing.T) {
	_, client := startFake(t, 10)
	client.Transport().(*rnreport.HTTPTransport).SetEnvelopePatch(false)
	res, err := client.Run(context.Background(), 100, 0, 0, rnreport.Filter("Status", rnreport.OpEqual, "Solved"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, rnreport.ErrServiceFault))
	assert.Equal(t, 0, res.RowCount)
}

func TestEndToEndFaults(t *testing.T) {
	t.Run("unknown report", func(t *testing.T) {
		svc, client := startFake(t, 10)
		res, err := client.Run(context.Background(), 5, 0, 0)
		assert.True(t, errors.Is(err, rnreport.ErrServiceFault))
		assert.Equal(t, 0, res.RowCount)
		assert.Equal(t, 1, svc.Calls())
	})
	t.Run("bad credentials", func(t *testing.T) {
		svc, _ := startFake(t, 10)
		srv := httptest.NewServer(svc)
		defer srv.Close()
		client := rnreport.NewSOAPClient(srv.URL, rnreport.Credentials{Username: "api", Password: "wrong"})
		_, err := client.Run(context.Background(), 100, 0, 0)
		assert.True(t, errors.Is(err, rnreport.ErrTransportFault))
		assert.NotContains(t, err.Error(), "wrong")
	})
	t.Run("fault mid-run", func(t *testing.T) {
		svc, client := startFake(t, 50)
		svc.FailCall(3, "database unavailable")
		res, err := client.Run(context.Background(), 100, 0, 10)
		require.Error(t, err)
		var re *rnreport.ReportError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, rnreport.KindServiceFault, re.Kind)
		assert.Equal(t, 2, re.Page)
		assert.Equal(t, "database unavailable", re.Message)
		assert.Equal(t, 0, res.RowCount)
		assert.Equal(t, 3, svc.Calls())
	})
}

func TestEndToEndGzip(t *testing.T) {
	svc, client := startFake(t, 300)
	svc.SetGzip(true)
	client.Transport().(*rnreport.HTTPTransport).SetCompressRequests(true)
	res, err := client.Run(context.Background(), 100, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 300, res.RowCount)
}
