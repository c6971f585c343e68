// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import "fmt"

// SchemaError reports a document that is valid JSON but not a valid card.
type SchemaError struct {
	// Path is a JSON-path-like location, e.g. "$.body[2].facts[0].title".
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid card at %s: %s", e.Path, e.Message)
}

func schemaErr(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Message: fmt.Sprintf(format, args...)}
}
