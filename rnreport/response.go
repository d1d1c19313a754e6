// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// RawResponse is the decoded RunAnalyticsReport response before CSV
// decoding. Exactly one of Fault or Table is set for a well-formed reply.
type RawResponse struct {
	Fault *Fault
	Table *CSVTable

	// Byte counts of the call that produced this response, filled in by
	// transports that know them. Reported to hooks through CallStatistics.
	RequestBytes  int64
	ResponseBytes int64
}

// Fault is a SOAP fault returned instead of data.
type Fault struct {
	Code   string
	String string
	Detail string
}

// CSVTable is one table of the response CSVTableSet.
type CSVTable struct {
	Name    string
	Columns string
	// Rows is nil when the response has no Rows container at all.
	Rows *RowSet
}

// RowSet holds the Row values of a table. The service collapses a
// one-element list into a scalar, so a RowSet is either a single row or a
// list of rows.
type RowSet struct {
	single *string
	list   []string
}

// SingleRow builds a RowSet in the scalar shape.
func SingleRow(row string) *RowSet {
	return &RowSet{single: &row}
}

// RowList builds a RowSet in the list shape, even for one element.
func RowList(rows []string) *RowSet {
	return &RowSet{list: rows}
}

// NewRowSet builds a RowSet the way the service shapes it on the wire.
func NewRowSet(rows []string) *RowSet {
	if len(rows) == 1 {
		return SingleRow(rows[0])
	}
	return RowList(rows)
}

// IsSingle reports whether the RowSet is in the scalar shape.
func (r *RowSet) IsSingle() bool {
	return r != nil && r.single != nil
}

// Len returns the number of rows.
func (r *RowSet) Len() int {
	switch {
	case r == nil:
		return 0
	case r.single != nil:
		return 1
	default:
		return len(r.list)
	}
}

// ReportPage is the decoded result of one call.
type ReportPage struct {
	Columns []string
	Rows    [][]string
}

// ParseResponse decodes the CSV table of raw into a ReportPage. A fault
// response yields a ServiceFault, or a TransportFault when the fault is an
// authentication rejection.
func ParseResponse(raw *RawResponse) (*ReportPage, error) {
	if raw == nil {
		return nil, parseFault("empty response", nil)
	}
	if raw.Fault != nil {
		return nil, faultError(raw.Fault)
	}
	if raw.Table == nil {
		return nil, parseFault("response carries no CSV table", nil)
	}

	columns := []string{}
	if raw.Table.Columns != "" {
		var err error
		columns, err = DecodeCSVLine(raw.Table.Columns)
		if err != nil {
			return nil, parseFault("decoding column header", err)
		}
	}
	page := &ReportPage{Columns: columns, Rows: [][]string{}}

	rows := raw.Table.Rows
	switch {
	case rows == nil:
		// no Rows container: zero matching rows
	case rows.IsSingle():
		fields, err := DecodeCSVLine(*rows.single)
		if err != nil {
			return nil, parseFault("decoding row 0", err)
		}
		page.Rows = append(page.Rows, fields)
	default:
		page.Rows = make([][]string, 0, len(rows.list))
		for i, line := range rows.list {
			fields, err := DecodeCSVLine(line)
			if err != nil {
				return nil, parseFault(fmt.Sprintf("decoding row %d", i), err)
			}
			page.Rows = append(page.Rows, fields)
		}
	}
	return page, nil
}

// DecodeCSVLine splits one CSV record into fields using double-quote
// quoting with doubled embedded quotes. An empty line is one empty field.
// Quoted fields may span newlines; anything else that yields a second
// record is an error. Quotes are strict: a quote inside an unquoted field,
// or a space before an opening quote, is an error rather than a literal.
func DecodeCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []string{""}, nil
		}
		return nil, err
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("line holds more than one CSV record")
	}
	return fields, nil
}

// authFaultCodes are faultcode local names that mean the credentials were
// rejected rather than the request.
var authFaultCodes = []string{"FailedAuthentication", "InvalidSecurity", "InvalidSecurityToken"}

func faultError(f *Fault) *ReportError {
	kind := KindServiceFault
	local := f.Code
	if i := strings.LastIndex(local, ":"); i >= 0 {
		local = local[i+1:]
	}
	for _, c := range authFaultCodes {
		if local == c {
			kind = KindTransportFault
			break
		}
	}
	msg := f.String
	if msg == "" {
		msg = "SOAP fault"
	}
	return &ReportError{Kind: kind, Message: msg, Code: f.Code}
}

// --- SOAP response decoding ---

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault    *faultXML    `xml:"Fault"`
	Response *responseXML `xml:"RunAnalyticsReportResponse"`
}

type faultXML struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail struct {
		Inner string `xml:",innerxml"`
	} `xml:"detail"`
}

type responseXML struct {
	Tables []tableXML `xml:"CSVTableSet>CSVTables>CSVTable"`
}

type tableXML struct {
	Name    string   `xml:"Name"`
	Columns string   `xml:"Columns"`
	Rows    *rowsXML `xml:"Rows"`
}

type rowsXML struct {
	Row []string `xml:"Row"`
}

// DecodeEnvelope decodes a SOAP response body into a RawResponse. Only the
// first CSVTable is kept; RunAnalyticsReport returns exactly one.
func DecodeEnvelope(r io.Reader) (*RawResponse, error) {
	var env responseEnvelope
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding SOAP envelope: %w", err)
	}

	raw := &RawResponse{}
	switch {
	case env.Body.Fault != nil:
		f := env.Body.Fault
		raw.Fault = &Fault{
			Code:   strings.TrimSpace(f.Code),
			String: strings.TrimSpace(f.String),
			Detail: strings.TrimSpace(f.Detail.Inner),
		}
	case env.Body.Response != nil:
		if len(env.Body.Response.Tables) > 0 {
			t := env.Body.Response.Tables[0]
			raw.Table = &CSVTable{Name: t.Name, Columns: t.Columns}
			if t.Rows != nil {
				raw.Table.Rows = NewRowSet(t.Rows.Row)
			}
		}
	default:
		return nil, fmt.Errorf("SOAP body holds neither a fault nor a %sResponse", OperationRunAnalyticsReport)
	}
	return raw, nil
}

// charsetReader accepts the encodings RightNow declares and transcodes
// the single-byte ones to UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii", "":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}
