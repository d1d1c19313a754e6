// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Query-farm/rightnow-report/rnreport"
)

type resultWriter func(w io.Writer, res *rnreport.ReportResult) error

func outputWriter(format string) (resultWriter, error) {
	switch format {
	case "json":
		return writeJSON, nil
	case "csv":
		return writeCSV, nil
	case "arrow":
		return func(w io.Writer, res *rnreport.ReportResult) error { return res.WriteIPC(w) }, nil
	default:
		return nil, fmt.Errorf("unknown --format %q: want json, csv or arrow", format)
	}
}

func writeJSON(w io.Writer, res *rnreport.ReportResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// writeCSV writes the header then every row.
func writeCSV(w io.Writer, res *rnreport.ReportResult) error {
	cw := csv.NewWriter(w)
	if len(res.Columns) > 0 {
		if err := cw.Write(res.Columns); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(res.Data); err != nil {
		return err
	}
	return cw.Error()
}

func contentType(format string) string {
	switch format {
	case "csv":
		return "text/csv"
	case "arrow":
		return "application/vnd.apache.arrow.stream"
	default:
		return "application/json"
	}
}
