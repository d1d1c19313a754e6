// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package fakeservice

import "fmt"

// IncidentColumns are the columns of IncidentReport.
var IncidentColumns = []string{"Reference #", "Subject", "Status", "Queue", "Created"}

var (
	incidentStatuses = []string{"Unresolved", "Updated", "Waiting", "Solved"}
	incidentQueues   = []string{"Tier 1", "Tier 2", "Billing"}
	incidentSubjects = []string{
		"Cannot log in",
		"Printer, floor 3",
		`Customer says "urgent"`,
		"Refund request\nsecond line",
		"",
	}
)

// IncidentReport builds a deterministic incident report with n rows. The
// subjects include commas, quotes, newlines and empty values so every CSV
// quoting rule is exercised.
func IncidentReport(id, n int) Report {
	rows := make([][]string, n)
	for i := range n {
		rows[i] = []string{
			fmt.Sprintf("240101-%06d", i),
			incidentSubjects[i%len(incidentSubjects)],
			incidentStatuses[i%len(incidentStatuses)],
			incidentQueues[i%len(incidentQueues)],
			fmt.Sprintf("2024-01-%02dT%02d:00:00Z", i%28+1, i%24),
		}
	}
	return Report{
		ID:      id,
		Name:    "Incidents",
		Columns: IncidentColumns,
		Rows:    rows,
	}
}
