// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "encoding/json"

// Kind is the display mode chosen for a message.
type Kind int

const (
	// KindPlain is user text shown verbatim.
	KindPlain Kind = iota
	// KindCard is a rendered Adaptive Card.
	KindCard
	// KindProse is Markdown converted for the terminal.
	KindProse
	// KindEmpty is a document that failed card validation.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindCard:
		return "card"
	case KindProse:
		return "prose"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Classification is the result of probing content for a JSON document.
// When IsDocument is false, Doc is nil and the content is prose.
type Classification struct {
	IsDocument bool
	Doc        any
}

// Classify reports whether content parses as a JSON value. Any JSON value
// counts, including scalars; whether it is a valid card is decided later.
func Classify(content string) Classification {
	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return Classification{}
	}
	return Classification{IsDocument: true, Doc: doc}
}
