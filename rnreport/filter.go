// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a RightNow analytics filter operator. The numeric values are
// the wire-level operator ids and must not be renumbered.
type Operator int

const (
	OpEqual          Operator = 1
	OpNotEqual       Operator = 2
	OpLessThan       Operator = 3
	OpLessOrEqual    Operator = 4
	OpGreaterThan    Operator = 5
	OpGreaterOrEqual Operator = 6
	OpLike           Operator = 7
	OpNotLike        Operator = 8
	OpBetween        Operator = 9
	OpInList         Operator = 10
	OpNotInList      Operator = 11
	OpNotEqualOrNull Operator = 14
	OpNotLikeOrNull  Operator = 15
	OpRegex          Operator = 19
	OpNotRegex       Operator = 20
)

// operatorNames maps each operator to the symbol RightNow Analytics uses
// in its filter definitions.
var operatorNames = map[Operator]string{
	OpEqual:          "=",
	OpNotEqual:       "<>",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLike:           "LIKE",
	OpNotLike:        "NOT LIKE",
	OpBetween:        "RANGE",
	OpInList:         "IN LIST",
	OpNotInList:      "NOT IN LIST",
	OpNotEqualOrNull: "NE_OR_NULL",
	OpNotLikeOrNull:  "NLIKE_OR_NULL",
	OpRegex:          "REGEX",
	OpNotRegex:       "NOT REGEX",
}

// Valid reports whether op is one of the operator ids the service accepts.
func (op Operator) Valid() bool {
	_, ok := operatorNames[op]
	return ok
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator accepts either a numeric operator id ("7") or the symbolic
// name ("LIKE", "not in list"). Matching on names is case-insensitive.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		op := Operator(n)
		if !op.Valid() {
			return 0, fmt.Errorf("unknown operator id %d", n)
		}
		return op, nil
	}
	for op, name := range operatorNames {
		if strings.EqualFold(name, s) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// ReportFilter narrows a report run to rows where the named report filter
// compares to Value using Operator. Name is the filter name as defined in
// RightNow Analytics, not a column heading.
type ReportFilter struct {
	Name     string
	Operator Operator
	Value    string
}

// Filter is shorthand for building a ReportFilter.
func Filter(name string, op Operator, value string) ReportFilter {
	return ReportFilter{Name: name, Operator: op, Value: value}
}

func (f ReportFilter) validate(idx int) error {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "name")
	}
	if f.Operator == 0 {
		missing = append(missing, "operator")
	}
	if f.Value == "" {
		missing = append(missing, "value")
	}
	if len(missing) > 0 {
		return &ReportError{
			Kind:    KindInvalidFilterSpec,
			Message: fmt.Sprintf("filter %d is missing %s", idx, strings.Join(missing, ", ")),
		}
	}
	if !f.Operator.Valid() {
		return &ReportError{
			Kind:    KindInvalidFilterSpec,
			Message: fmt.Sprintf("filter %d (%s) has unknown operator id %d", idx, f.Name, int(f.Operator)),
		}
	}
	return nil
}

// ID is the RightNow base ID type, carried as an "id" attribute.
type ID struct {
	ID int `xml:"id,attr"`
}

// NamedID identifies an object by id, by name, or both.
type NamedID struct {
	ID   *ID    `xml:"ns3:ID,omitempty"`
	Name string `xml:"ns3:Name,omitempty"`
}

// FilterAttributes describes how a filter is presented in the report
// definition.
type FilterAttributes struct {
	Editable bool `xml:"ns2:Editable"`
	Required bool `xml:"ns2:Required"`
}

// AnalyticsReportFilter is the filter-definition shape of the objects
// schema. The search-filter fields (Name, Operator, Values) are the only
// ones sent on a run; the remaining fields appear in report definitions.
type AnalyticsReportFilter struct {
	Name       string            `xml:"ns2:Name"`
	Operator   NamedID           `xml:"ns2:Operator"`
	Values     string            `xml:"ns2:Values"`
	Attributes *FilterAttributes `xml:"ns2:Attributes,omitempty"`
	DataType   *NamedID          `xml:"ns2:DataType,omitempty"`
	Prompt     string            `xml:"ns2:Prompt,omitempty"`
}

// toAnalyticsFilter converts the simple filter form to the schema shape.
func (f ReportFilter) toAnalyticsFilter() AnalyticsReportFilter {
	return AnalyticsReportFilter{
		Name:     f.Name,
		Operator: NamedID{ID: &ID{ID: int(f.Operator)}},
		Values:   f.Value,
	}
}
