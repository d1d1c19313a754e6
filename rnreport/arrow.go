// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Schema metadata keys attached to exported results.
const (
	MetaRowCount       = "rnreport.row_count"
	MetaProcessingTime = "rnreport.processing_time"
	MetaPages          = "rnreport.pages"
)

// width is the number of Arrow columns needed to hold every field: rows
// may carry more fields than the header names.
func (r *ReportResult) width() int {
	w := len(r.Columns)
	for _, row := range r.Data {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Schema returns the Arrow schema of the result: one nullable utf8 column
// per report column. Fields beyond the header are named column_N (1-based).
func (r *ReportResult) Schema() *arrow.Schema {
	w := r.width()
	fields := make([]arrow.Field, w)
	for i := range w {
		name := fmt.Sprintf("column_%d", i+1)
		if i < len(r.Columns) {
			name = r.Columns[i]
		}
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	md := arrow.NewMetadata(
		[]string{MetaRowCount, MetaProcessingTime, MetaPages},
		[]string{
			strconv.Itoa(r.RowCount),
			strconv.FormatFloat(r.ProcessingTime, 'f', -1, 64),
			strconv.Itoa(r.Pages),
		},
	)
	return arrow.NewSchema(fields, &md)
}

// Record builds a single record holding every row. Rows shorter than the
// schema are padded with nulls. The caller must Release the record.
func (r *ReportResult) Record(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema := r.Schema()
	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range cols {
		b := array.NewStringBuilder(mem)
		b.Reserve(len(r.Data))
		for _, row := range r.Data {
			if i < len(row) {
				b.Append(row[i])
			} else {
				b.AppendNull()
			}
		}
		cols[i] = b.NewArray()
		b.Release()
	}

	return array.NewRecord(schema, cols, int64(len(r.Data))), nil
}

// WriteIPC writes the result to w as an Arrow IPC stream with one record
// batch.
func (r *ReportResult) WriteIPC(w io.Writer) error {
	mem := memory.NewGoAllocator()
	rec, err := r.Record(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing report record: %w", err)
	}
	return writer.Close()
}
