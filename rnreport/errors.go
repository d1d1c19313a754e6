// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a ReportError.
type ErrorKind string

const (
	// KindInvalidFilterSpec marks malformed filter or window input, detected
	// before any call is issued.
	KindInvalidFilterSpec ErrorKind = "InvalidFilterSpec"
	// KindTransportFault marks a call that could not be completed: network
	// failure, HTTP error, authentication rejection or an undecodable envelope.
	KindTransportFault ErrorKind = "TransportFault"
	// KindServiceFault marks a SOAP fault returned by the service itself, for
	// example an unknown report id.
	KindServiceFault ErrorKind = "ServiceFault"
	// KindParseFault marks a response whose CSV table could not be decoded.
	KindParseFault ErrorKind = "ParseFault"
	// KindPageLimit marks a run aborted because it reached the configured
	// maximum number of pages.
	KindPageLimit ErrorKind = "PageLimit"
)

// Sentinels for use with errors.Is. Each matches any *ReportError of the
// same kind; ErrReport matches every *ReportError.
var (
	ErrReport            = &ReportError{}
	ErrInvalidFilterSpec = &ReportError{Kind: KindInvalidFilterSpec}
	ErrTransportFault    = &ReportError{Kind: KindTransportFault}
	ErrServiceFault      = &ReportError{Kind: KindServiceFault}
	ErrParseFault        = &ReportError{Kind: KindParseFault}
	ErrPageLimit         = &ReportError{Kind: KindPageLimit}
)

// ReportError is the error type returned by report runs.
type ReportError struct {
	Kind    ErrorKind
	Message string
	// Code is the SOAP faultcode for service faults, or the HTTP status for
	// transport faults that received a response.
	Code string
	// Page is the zero-based page index of the run the error occurred on.
	Page int
	Err  error
}

func (e *ReportError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " (code %s)", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is by matching a *ReportError target of the same kind.
// A target with an empty Kind matches any *ReportError.
func (e *ReportError) Is(target error) bool {
	t, ok := target.(*ReportError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func transportFault(msg string, err error) *ReportError {
	return &ReportError{Kind: KindTransportFault, Message: msg, Err: err}
}

func parseFault(msg string, err error) *ReportError {
	return &ReportError{Kind: KindParseFault, Message: msg, Err: err}
}
