// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID returns a context that makes the next run use id instead of a
// generated one. Useful for correlating a run with caller-side logs.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run id carried by ctx. Inside a run (in
// hooks and transports) it is always set.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// ensureRunID returns ctx carrying a run id, generating one if needed.
func ensureRunID(ctx context.Context) (context.Context, string) {
	if id, ok := RunIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRunID(ctx, id), id
}
