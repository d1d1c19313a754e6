// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package rnreport implements a Go client for the RunAnalyticsReport
// operation of the Oracle RightNow (Service Cloud) Connect SOAP API.
//
// A run executes a saved analytics report by numeric id, optionally
// narrowed by filters, and returns every row from the requested start
// onward. The service returns at most [MaxPageSize] rows per call; the
// client keeps calling with an advancing start until a page comes back
// short and concatenates the pages into one [ReportResult].
//
// # Filters
//
// Filters are (name, operator, value) triples built with [Filter]. The
// operator is one of the service's numeric operator ids ([OpEqual],
// [OpLike], [OpInList], ...). Every filter is validated before any call
// is made; an invalid filter fails the run with [ErrInvalidFilterSpec].
//
// # Envelope patch
//
// The service rejects filter lists wrapped in an outer Filters element,
// while the serialized request always produces one. [HTTPTransport]
// removes the wrapper from every outgoing body ([Patch]) so the filter
// elements sit directly inside AnalyticsReport.
//
// # Errors
//
// All failures are reported as [*ReportError] values and match one of
// [ErrInvalidFilterSpec], [ErrTransportFault], [ErrServiceFault],
// [ErrParseFault] or [ErrPageLimit] with errors.Is. A failed run returns
// an empty result; rows from earlier pages are never returned alongside
// an error.
//
// # Export
//
// [ReportResult] serializes to JSON directly and to Arrow with
// [ReportResult.Record] and [ReportResult.WriteIPC].
package rnreport
