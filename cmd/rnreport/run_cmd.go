// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Query-farm/rightnow-report/internal/config"
	"github.com/Query-farm/rightnow-report/internal/sink"
	"github.com/Query-farm/rightnow-report/rnreport"
	rnotel "github.com/Query-farm/rightnow-report/rnreport/otel"
)

func newRunCmd() *cobra.Command {
	var (
		configPath       string
		endpoint         string
		username         string
		appID            string
		reportID         int
		start            int
		limit            int
		rowLimit         int
		filters          []string
		format           string
		outputPath       string
		trace            bool
		legacyPagination bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a report and write every row",
		Long: `Run a saved analytics report and write all of its rows.

The password is read from the config file or RNREPORT_PASSWORD only.
Filters take the form "Name|operator|value", where operator is an id (1)
or a symbol (=, LIKE, "IN LIST").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, config.DefaultEnvFiles)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				cfg.Endpoint = endpoint
			}
			if flags.Changed("username") {
				cfg.Username = username
			}
			if flags.Changed("app-id") {
				cfg.AppID = appID
			}
			if flags.Changed("legacy-pagination") {
				cfg.LegacyPagination = legacyPagination
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			parsed := make([]rnreport.ReportFilter, 0, len(filters))
			for _, f := range filters {
				rf, err := parseFilter(f)
				if err != nil {
					return err
				}
				parsed = append(parsed, rf)
			}
			write, err := outputWriter(format)
			if err != nil {
				return err
			}
			if sink.IsGCS(outputPath) {
				if _, _, err := sink.ParseGCS(outputPath); err != nil {
					return err
				}
			}

			logger, err := rnreport.NewLogger(cmd.ErrOrStderr(), rnreport.LogLevel(cfg.LogLevel), cfg.LogFormat)
			if err != nil {
				return err
			}
			client := cfg.NewClient(logger)
			client.SetRowLimit(rowLimit)

			if trace {
				tel, err := setupTelemetry(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() {
					if err := tel.shutdown(cmd.Context()); err != nil {
						logger.Warn("telemetry shutdown failed", "err", err)
					}
				}()
				ocfg := rnotel.DefaultConfig()
				ocfg.TracerProvider = tel.tracerProvider
				ocfg.MeterProvider = tel.meterProvider
				rnotel.InstrumentClient(client, ocfg)
			}

			res, err := client.Run(cmd.Context(), reportID, start, limit, parsed...)
			if err != nil {
				return err
			}

			out, err := sink.Open(cmd.Context(), outputPath, sink.Options{
				Stdout:      cmd.OutOrStdout(),
				ContentType: contentType(format),
			})
			if err != nil {
				return err
			}
			if err := write(out, res); err != nil {
				if aerr := out.Abort(); aerr != nil {
					logger.Warn("discarding partial output failed", "err", aerr)
				}
				return err
			}
			return out.Close()
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&configPath, "config", "", "TOML config file")
	fl.StringVar(&endpoint, "endpoint", "", "SOAP endpoint URL (overrides config)")
	fl.StringVar(&username, "username", "", "API username (overrides config)")
	fl.StringVar(&appID, "app-id", "", "AppID sent in the ClientInfoHeader (overrides config)")
	fl.IntVar(&reportID, "report", 0, "Report ID (required)")
	fl.IntVar(&start, "start", 0, "Zero-based first row")
	fl.IntVar(&limit, "limit", 0, "Page size, 0 for the service maximum of 10000")
	fl.IntVar(&rowLimit, "row-limit", 0, "Stop after this many rows, 0 for all")
	fl.StringArrayVar(&filters, "filter", nil, `Filter "Name|operator|value" (repeatable)`)
	fl.StringVar(&format, "format", "json", "Output format: json, csv or arrow")
	fl.StringVarP(&outputPath, "output", "o", "", "Output file or gs://bucket/object (default stdout)")
	fl.BoolVar(&trace, "trace", false, "Print OpenTelemetry spans and metrics to stderr")
	fl.BoolVar(&legacyPagination, "legacy-pagination", false, "Only request another page after a page of 10000 rows")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}

// parseFilter parses "Name|operator|value". The value may itself contain
// "|", e.g. for RANGE filters.
func parseFilter(s string) (rnreport.ReportFilter, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return rnreport.ReportFilter{}, fmt.Errorf("invalid --filter %q: want Name|operator|value", s)
	}
	op, err := rnreport.ParseOperator(parts[1])
	if err != nil {
		return rnreport.ReportFilter{}, fmt.Errorf("invalid --filter %q: %w", s, err)
	}
	return rnreport.Filter(strings.TrimSpace(parts[0]), op, parts[2]), nil
}
