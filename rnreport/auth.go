// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import "log/slog"

// Credentials are the API account used in the WS-Security UsernameToken.
// They are opaque to the client: never logged and never copied into errors.
type Credentials struct {
	Username string
	Password string
}

// String redacts both fields so credentials printed with %v stay hidden.
func (c Credentials) String() string {
	return "Credentials{REDACTED}"
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("username_set", c.Username != ""),
		slog.Bool("password_set", c.Password != ""),
	)
}

// securityHeader is the WS-Security header carrying a plain-text
// UsernameToken, the only token profile RightNow accepts.
type securityHeader struct {
	WSSE           string        `xml:"xmlns:wsse,attr"`
	MustUnderstand int           `xml:"soapenv:mustUnderstand,attr"`
	UsernameToken  usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string       `xml:"wsse:Username"`
	Password passwordText `xml:"wsse:Password"`
}

type passwordText struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

func newSecurityHeader(c Credentials) *securityHeader {
	return &securityHeader{
		WSSE:           NSWSSecurity,
		MustUnderstand: 1,
		UsernameToken: usernameToken{
			Username: c.Username,
			Password: passwordText{Type: PasswordTextType, Value: c.Password},
		},
	}
}

// clientInfoHeader identifies the calling application; RightNow requires it
// on every request.
type clientInfoHeader struct {
	MustUnderstand int    `xml:"soapenv:mustUnderstand,attr"`
	AppID          string `xml:"ns1:AppID"`
}
