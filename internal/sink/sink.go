// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package sink opens the destination a report result is written to: stdout,
// a local file or a Google Cloud Storage object.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// Options configures Open.
type Options struct {
	// Stdout receives output when the target is "" or "-".
	Stdout io.Writer
	// ContentType is set on Cloud Storage objects.
	ContentType string
	// GCS holds client options for Cloud Storage targets, e.g.
	// option.WithEndpoint for an emulator.
	GCS []option.ClientOption
}

// IsGCS reports whether target names a Cloud Storage object.
func IsGCS(target string) bool {
	return strings.HasPrefix(target, gcsScheme)
}

// ParseGCS splits gs://bucket/object into its bucket and object names.
func ParseGCS(target string) (bucket, object string, err error) {
	if !IsGCS(target) {
		return "", "", fmt.Errorf("not a gs:// URL: %q", target)
	}
	bucket, object, _ = strings.Cut(strings.TrimPrefix(target, gcsScheme), "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid gs:// URL %q: want gs://bucket/object", target)
	}
	return bucket, object, nil
}

// Writer is an output destination. Close commits what was written; Abort
// discards it instead, removing a local file or cancelling a Cloud Storage
// upload so that no partial object is created.
type Writer interface {
	io.Writer
	Close() error
	Abort() error
}

// Open returns a writer for target. For Cloud Storage the object does not
// exist until Close succeeds.
func Open(ctx context.Context, target string, opts Options) (Writer, error) {
	switch {
	case target == "" || target == "-":
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return stdWriter{out}, nil
	case IsGCS(target):
		return openGCS(ctx, target, opts)
	default:
		f, err := os.Create(target)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return fileWriter{f}, nil
	}
}

type stdWriter struct{ io.Writer }

func (stdWriter) Close() error { return nil }
func (stdWriter) Abort() error { return nil }

type fileWriter struct{ *os.File }

func (f fileWriter) Abort() error {
	_ = f.File.Close()
	return os.Remove(f.Name())
}

type gcsWriter struct {
	client *storage.Client
	w      *storage.Writer
	cancel context.CancelFunc
	target string
}

func openGCS(ctx context.Context, target string, opts Options) (Writer, error) {
	bucket, object, err := ParseGCS(target)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts.GCS...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	uploadCtx, cancel := context.WithCancel(ctx)
	w := client.Bucket(bucket).Object(object).NewWriter(uploadCtx)
	w.ContentType = opts.ContentType
	return &gcsWriter{client: client, w: w, cancel: cancel, target: target}, nil
}

func (g *gcsWriter) Write(p []byte) (int, error) {
	return g.w.Write(p)
}

func (g *gcsWriter) Close() error {
	var errs []error
	if err := g.w.Close(); err != nil {
		errs = append(errs, fmt.Errorf("uploading %s: %w", g.target, err))
	}
	if err := g.client.Close(); err != nil {
		errs = append(errs, err)
	}
	g.cancel()
	return errors.Join(errs...)
}

// Abort cancels the upload before closing; the Close error is the
// cancellation and is dropped.
func (g *gcsWriter) Abort() error {
	g.cancel()
	_ = g.w.Close()
	return g.client.Close()
}
