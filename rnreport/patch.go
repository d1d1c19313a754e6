// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rnreport

import "strings"

// Patch removes the Filters collection wrapper from a serialized request
// body. See StripWrapper.
func Patch(body string) string {
	return StripWrapper(body, FiltersElement)
}

// PatchBytes is Patch for byte slices.
func PatchBytes(body []byte) []byte {
	return []byte(Patch(string(body)))
}

// PatchEnvelope is a PreSendHook that applies Patch.
func PatchEnvelope(body []byte) ([]byte, error) {
	return PatchBytes(body), nil
}

// StripWrapper removes the first opening tag of element, the last closing
// tag of element, and every self-closing form of it. Only the outermost
// pair is removed because the repeated children share the wrapper's name.
// A body without the element is returned unchanged. Running it a second
// time on a body that carries filters strips real filter tags, so
// transports apply it exactly once.
func StripWrapper(body, element string) string {
	open := "<" + element + ">"
	closing := "</" + element + ">"

	if i := strings.Index(body, open); i >= 0 {
		body = body[:i] + body[i+len(open):]
	}
	if j := strings.LastIndex(body, closing); j >= 0 {
		body = body[:j] + body[j+len(closing):]
	}
	body = strings.ReplaceAll(body, "<"+element+"/>", "")
	return strings.ReplaceAll(body, "<"+element+" />", "")
}
