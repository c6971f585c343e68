// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Accumulator is the scratch buffer for the assistant reply currently
// streaming in. It is display-only state: once the stream completes its
// text becomes a Message and the buffer is reset.
//
// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming.
type Accumulator struct {
	buf strings.Builder
}

// Append adds a fragment to the end of the buffer.
func (a *Accumulator) Append(fragment string) {
	a.buf.WriteString(fragment)
}

// String returns the text received so far.
func (a *Accumulator) String() string {
	return a.buf.String()
}

// Len returns the number of bytes received so far.
func (a *Accumulator) Len() int {
	return a.buf.Len()
}

// Reset discards the buffered text.
func (a *Accumulator) Reset() {
	a.buf.Reset()
}

// Take returns the buffered text and resets the buffer.
func (a *Accumulator) Take() string {
	s := a.buf.String()
	a.buf.Reset()
	return s
}
