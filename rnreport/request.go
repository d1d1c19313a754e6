// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// RunAnalyticsReport is the body element of the request.
type RunAnalyticsReport struct {
	AnalyticsReport AnalyticsReport `xml:"ns1:AnalyticsReport"`
	Limit           int             `xml:"ns1:Limit"`
	Start           int             `xml:"ns1:Start"`
}

// AnalyticsReport names the report to run and the filters to apply.
type AnalyticsReport struct {
	ID      ID         `xml:"ns2:ID"`
	Filters *FilterSet `xml:"ns2:Filters,omitempty"`
}

// FilterSet is how the generic serializer represents the repeated Filters
// element: a wrapper holding one element per filter. The service expects
// the repeated elements without the wrapper, see Patch.
type FilterSet struct {
	Filters []AnalyticsReportFilter `xml:"ns2:Filters"`
}

// RequestPayload is one fully assembled RunAnalyticsReport call.
type RequestPayload struct {
	security   *securityHeader
	clientInfo clientInfoHeader
	Run        RunAnalyticsReport
}

// ReportID returns the report id the payload runs.
func (p *RequestPayload) ReportID() int { return p.Run.AnalyticsReport.ID.ID }

// Start returns the zero-based first row requested.
func (p *RequestPayload) Start() int { return p.Run.Start }

// Limit returns the page size requested.
func (p *RequestPayload) Limit() int { return p.Run.Limit }

// AppID returns the application id sent in the ClientInfoHeader.
func (p *RequestPayload) AppID() string { return p.clientInfo.AppID }

// Filters returns the filters in the order they will be sent.
func (p *RequestPayload) Filters() []AnalyticsReportFilter {
	if p.Run.AnalyticsReport.Filters == nil {
		return nil
	}
	return p.Run.AnalyticsReport.Filters.Filters
}

// String describes the payload without credentials.
func (p *RequestPayload) String() string {
	return fmt.Sprintf("RunAnalyticsReport{report=%d start=%d limit=%d filters=%d}",
		p.ReportID(), p.Start(), p.Limit(), len(p.Filters()))
}

type envelope struct {
	XMLName xml.Name       `xml:"soapenv:Envelope"`
	SoapEnv string         `xml:"xmlns:soapenv,attr"`
	NS1     string         `xml:"xmlns:ns1,attr"`
	NS2     string         `xml:"xmlns:ns2,attr"`
	NS3     string         `xml:"xmlns:ns3,attr"`
	Header  envelopeHeader `xml:"soapenv:Header"`
	Body    envelopeBody   `xml:"soapenv:Body"`
}

type envelopeHeader struct {
	ClientInfo clientInfoHeader `xml:"ns1:ClientInfoHeader"`
	Security   *securityHeader  `xml:"wsse:Security"`
}

type envelopeBody struct {
	Run *RunAnalyticsReport `xml:"ns1:RunAnalyticsReport"`
}

// MarshalSOAP serializes the payload into a SOAP 1.1 envelope. The output
// still contains the Filters wrapper; transports must run Patch (or
// PatchEnvelope as a pre-send hook) on it before sending.
func (p *RequestPayload) MarshalSOAP() ([]byte, error) {
	env := envelope{
		SoapEnv: NSSoapEnvelope,
		NS1:     NSMessages,
		NS2:     NSObjects,
		NS3:     NSBase,
		Header: envelopeHeader{
			ClientInfo: p.clientInfo,
			Security:   p.security,
		},
		Body: envelopeBody{Run: &p.Run},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", OperationRunAnalyticsReport, err)
	}
	return buf.Bytes(), nil
}

// Assembler builds request payloads for one set of credentials.
type Assembler struct {
	creds Credentials
	appID string
}

// NewAssembler creates an Assembler. An empty appID uses DefaultAppID.
func NewAssembler(creds Credentials, appID string) *Assembler {
	if appID == "" {
		appID = DefaultAppID
	}
	return &Assembler{creds: creds, appID: appID}
}

// EffectiveLimit returns the page size actually requested for limit:
// zero and anything above MaxPageSize become MaxPageSize.
func EffectiveLimit(limit int) int {
	if limit == 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Build assembles the payload for one call. It performs no I/O.
func (a *Assembler) Build(reportID, start, limit int, filters []ReportFilter) (*RequestPayload, error) {
	if reportID <= 0 {
		return nil, &ReportError{Kind: KindInvalidFilterSpec, Message: fmt.Sprintf("report id must be positive, got %d", reportID)}
	}
	if start < 0 {
		return nil, &ReportError{Kind: KindInvalidFilterSpec, Message: fmt.Sprintf("start must be non-negative, got %d", start)}
	}
	if limit < 0 {
		return nil, &ReportError{Kind: KindInvalidFilterSpec, Message: fmt.Sprintf("limit must be non-negative, got %d", limit)}
	}

	report := AnalyticsReport{ID: ID{ID: reportID}}
	if len(filters) > 0 {
		set := &FilterSet{Filters: make([]AnalyticsReportFilter, 0, len(filters))}
		for i, f := range filters {
			if err := f.validate(i); err != nil {
				return nil, err
			}
			set.Filters = append(set.Filters, f.toAnalyticsFilter())
		}
		report.Filters = set
	}

	return &RequestPayload{
		security:   newSecurityHeader(a.creds),
		clientInfo: clientInfoHeader{AppID: a.appID},
		Run: RunAnalyticsReport{
			AnalyticsReport: report,
			Limit:           EffectiveLimit(limit),
			Start:           start,
		},
	}, nil
}
