// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package fakeservice implements an in-memory RightNow Connect SOAP
// endpoint that answers RunAnalyticsReport. It is used by the rnreport
// tests, the example program and the `rnreport serve-fake` command.
//
// The service behaves like the real one where the client depends on it:
// pages are capped at 10000 rows, a one-row page is sent as a single Row
// element, failures come back as HTTP 500 with a SOAP Fault, and a request
// whose filters are still wrapped in an outer Filters element is rejected.
package fakeservice
