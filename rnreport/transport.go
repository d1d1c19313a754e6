// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

const (
	soapContentType         = "text/xml; charset=utf-8"
	defaultTimeout          = 5 * time.Minute
	defaultMaxResponseBytes = 256 << 20
	defaultUserAgent        = "rnreport-go/1.0"
)

// RpcTransport executes one request/response cycle. Implementations must
// report failures to complete the call as errors and return service faults
// in RawResponse.Fault, so that a fault is never confused with zero rows.
type RpcTransport interface {
	Call(ctx context.Context, operation string, payload *RequestPayload) (*RawResponse, error)
}

// PreSendHook rewrites a serialized request body immediately before it is
// transmitted. Hooks never see response bodies.
type PreSendHook func(body []byte) ([]byte, error)

// HTTPTransport sends SOAP 1.1 requests over HTTP. The envelope patch is
// installed as its first pre-send hook. It is safe for concurrent use once
// configured.
type HTTPTransport struct {
	endpoint         string
	httpClient       *http.Client
	preSend          []PreSendHook
	patch            bool
	limiter          *rate.Limiter
	compressRequests bool
	maxResponseBytes int64
	userAgent        string
}

// NewHTTPTransport creates a transport posting to endpoint, the SOAP
// service URL (for RightNow: https://SITE.custhelp.com/cgi-bin/INTERFACE.cfg/services/soap).
func NewHTTPTransport(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		endpoint:         endpoint,
		httpClient:       &http.Client{Timeout: defaultTimeout},
		patch:            true,
		maxResponseBytes: defaultMaxResponseBytes,
		userAgent:        defaultUserAgent,
	}
}

// Endpoint returns the service URL.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// SetHTTPClient replaces the underlying HTTP client, e.g. to configure TLS.
func (t *HTTPTransport) SetHTTPClient(c *http.Client) {
	t.httpClient = c
}

// HTTPClient returns the underlying HTTP client.
func (t *HTTPTransport) HTTPClient() *http.Client {
	return t.httpClient
}

// SetTimeout sets the per-call timeout of the underlying HTTP client.
func (t *HTTPTransport) SetTimeout(d time.Duration) {
	t.httpClient.Timeout = d
}

// SetUserAgent sets the User-Agent header.
func (t *HTTPTransport) SetUserAgent(ua string) {
	t.userAgent = ua
}

// AddPreSendHook appends a hook run after the envelope patch.
func (t *HTTPTransport) AddPreSendHook(h PreSendHook) {
	t.preSend = append(t.preSend, h)
}

// SetEnvelopePatch enables or disables the built-in envelope patch. It is
// enabled by default; the service rejects unpatched bodies that carry
// filters.
func (t *HTTPTransport) SetEnvelopePatch(enabled bool) {
	t.patch = enabled
}

// SetRateLimit bounds calls to perSecond with the given burst. A
// non-positive perSecond removes the limit.
func (t *HTTPTransport) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		t.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// SetCompressRequests gzips request bodies when enabled.
func (t *HTTPTransport) SetCompressRequests(enabled bool) {
	t.compressRequests = enabled
}

// SetMaxResponseBytes bounds the size of a response body after
// decompression.
func (t *HTTPTransport) SetMaxResponseBytes(n int64) {
	t.maxResponseBytes = n
}

// Call implements RpcTransport.
func (t *HTTPTransport) Call(ctx context.Context, operation string, payload *RequestPayload) (*RawResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, transportFault("waiting for rate limiter", err)
		}
	}

	body, err := t.encode(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transportFault("creating request", err)
	}
	req.Header.Set("Content-Type", soapContentType)
	req.Header.Set("SOAPAction", operation)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", t.userAgent)
	if t.compressRequests {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if id, ok := RunIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, transportFault("sending request", err)
	}
	defer resp.Body.Close()

	data, err := t.readBody(resp)
	if err != nil {
		return nil, err
	}

	raw, decodeErr := DecodeEnvelope(bytes.NewReader(data))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// RightNow reports faults with HTTP 500 and a SOAP Fault body.
		if decodeErr == nil && raw.Fault != nil {
			raw.RequestBytes, raw.ResponseBytes = int64(len(body)), int64(len(data))
			return raw, nil
		}
		return nil, &ReportError{
			Kind:    KindTransportFault,
			Message: fmt.Sprintf("service answered HTTP %d", resp.StatusCode),
			Code:    strconv.Itoa(resp.StatusCode),
			Err:     decodeErr,
		}
	}
	if decodeErr != nil {
		return nil, transportFault("malformed response envelope", decodeErr)
	}
	raw.RequestBytes, raw.ResponseBytes = int64(len(body)), int64(len(data))
	return raw, nil
}

// encode serializes the payload, applies the pre-send hooks in order and
// optionally compresses the result.
func (t *HTTPTransport) encode(payload *RequestPayload) ([]byte, error) {
	body, err := payload.MarshalSOAP()
	if err != nil {
		return nil, transportFault("serializing request", err)
	}
	if t.patch {
		if body, err = PatchEnvelope(body); err != nil {
			return nil, transportFault("patching request envelope", err)
		}
	}
	for i, h := range t.preSend {
		if body, err = h(body); err != nil {
			return nil, transportFault(fmt.Sprintf("pre-send hook %d", i), err)
		}
	}
	if !t.compressRequests {
		return body, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, transportFault("compressing request", err)
	}
	if err := zw.Close(); err != nil {
		return nil, transportFault("compressing request", err)
	}
	return buf.Bytes(), nil
}

func (t *HTTPTransport) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, transportFault("opening gzip response", err)
		}
		defer zr.Close()
		r = zr
	}
	if t.maxResponseBytes > 0 {
		r = io.LimitReader(r, t.maxResponseBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, transportFault("reading response", err)
	}
	if t.maxResponseBytes > 0 && int64(len(data)) > t.maxResponseBytes {
		return nil, transportFault(fmt.Sprintf("response exceeds %d bytes", t.maxResponseBytes), nil)
	}
	return data, nil
}
