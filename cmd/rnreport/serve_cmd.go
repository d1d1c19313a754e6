// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Query-farm/rightnow-report/fakeservice"
	"github.com/Query-farm/rightnow-report/rnreport"
)

func newServeFakeCmd() *cobra.Command {
	var (
		addr     string
		reportID int
		rows     int
		username string
		password string
		gzip     bool
		pageCap  int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Serve an in-memory RunAnalyticsReport endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := rnreport.NewLogger(cmd.ErrOrStderr(), rnreport.LogLevel(logLevel), "text")
			if err != nil {
				return err
			}

			svc := fakeservice.New()
			svc.SetLogger(logger)
			svc.AddReport(fakeservice.IncidentReport(reportID, rows))
			svc.SetCredentials(username, password)
			svc.SetGzip(gzip)
			svc.SetPageCap(pageCap)

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ENDPOINT:http://%s/\n", listener.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return serve(ctx, listener, svc, logger)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	fl.IntVar(&reportID, "report", 1, "ID of the generated incident report")
	fl.IntVar(&rows, "rows", 25000, "Rows in the generated incident report")
	fl.StringVar(&username, "username", "", "Required username (empty accepts any)")
	fl.StringVar(&password, "password", "", "Required password")
	fl.BoolVar(&gzip, "gzip", false, "Compress responses for clients that accept gzip")
	fl.IntVar(&pageCap, "page-cap", 0, "Most rows per call, 0 for 10000")
	fl.StringVar(&logLevel, "log-level", "info", "Log level")
	return cmd
}

// serve runs an HTTP server on listener until ctx is done.
func serve(ctx context.Context, listener net.Listener, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("fake service shutdown", "err", err)
		}
	}()
	logger.Info("fake service listening", "addr", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve error: %w", err)
	}
	return nil
}
