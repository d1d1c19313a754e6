// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package fakeservice

import "encoding/xml"

// Request side: matched on local names so any prefix the client picks is
// accepted.

type requestEnvelope struct {
	XMLName xml.Name      `xml:"Envelope"`
	Header  requestHeader `xml:"Header"`
	Body    requestBody   `xml:"Body"`
}

type requestHeader struct {
	ClientInfo struct {
		AppID string `xml:"AppID"`
	} `xml:"ClientInfoHeader"`
	Security struct {
		UsernameToken struct {
			Username string `xml:"Username"`
			Password string `xml:"Password"`
		} `xml:"UsernameToken"`
	} `xml:"Security"`
}

type requestBody struct {
	Run *runRequest `xml:"RunAnalyticsReport"`
}

type idAttr struct {
	ID int `xml:"id,attr"`
}

type runRequest struct {
	Report struct {
		ID      idAttr          `xml:"ID"`
		Filters []requestFilter `xml:"Filters"`
	} `xml:"AnalyticsReport"`
	Limit int `xml:"Limit"`
	Start int `xml:"Start"`
}

// requestFilter is one Filters element. Nested is only populated when the
// element is a collection wrapper around further Filters elements.
type requestFilter struct {
	Name     string `xml:"Name"`
	Operator struct {
		ID idAttr `xml:"ID"`
	} `xml:"Operator"`
	Values string          `xml:"Values"`
	Nested []requestFilter `xml:"Filters"`
}

// Response side.

type responseEnvelope struct {
	XMLName xml.Name     `xml:"soapenv:Envelope"`
	SoapEnv string       `xml:"xmlns:soapenv,attr"`
	Body    responseBody `xml:"soapenv:Body"`
}

type responseBody struct {
	Fault    *soapFault   `xml:"soapenv:Fault,omitempty"`
	Response *runResponse `xml:"n0:RunAnalyticsReportResponse,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type runResponse struct {
	NS       string      `xml:"xmlns:n0,attr"`
	TableSet csvTableSet `xml:"n0:CSVTableSet"`
}

type csvTableSet struct {
	Tables csvTables `xml:"n1:CSVTables"`
}

type csvTables struct {
	NS    string   `xml:"xmlns:n1,attr"`
	Table csvTable `xml:"n1:CSVTable"`
}

type csvTable struct {
	Name    string   `xml:"n1:Name"`
	Columns string   `xml:"n1:Columns"`
	Rows    *csvRows `xml:"n1:Rows,omitempty"`
}

type csvRows struct {
	Row []string `xml:"n1:Row"`
}
