package rnreport

// Namespaces used in the RightNow Connect for SOAP envelope. The prefixes
// are fixed because the envelope patch matches on the literal element name.
const (
	NSSoapEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	NSMessages     = "urn:messages.ws.rightnow.com/v1_2"
	NSObjects      = "urn:objects.ws.rightnow.com/v1_2"
	NSBase         = "urn:base.ws.rightnow.com/v1_2"
	NSWSSecurity   = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	PasswordTextType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"

	// OperationRunAnalyticsReport is the only operation this client issues.
	OperationRunAnalyticsReport = "RunAnalyticsReport"

	// FiltersElement is the repeated filter element of AnalyticsReport. The
	// generic serializer also uses it as the collection wrapper, which the
	// service schema rejects.
	FiltersElement = "ns2:Filters"

	// MaxPageSize is the most rows the service returns for a single call.
	MaxPageSize = 10000

	// DefaultAppID is sent in the ClientInfoHeader unless overridden.
	DefaultAppID = "rnreport Go client"
)
