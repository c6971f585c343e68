// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package card implements a terminal renderer for Adaptive Cards.
//
// Parse validates a generic decoded JSON value against the supported subset
// of the Adaptive Card schema and returns a typed *Card. Any violation is
// reported as a *SchemaError carrying the JSON path of the offending node.
// (*Card).Render lays the card out for a fixed terminal width.
//
// # Supported Schema
//
// Elements: TextBlock, RichTextBlock (TextRun inlines), Image, FactSet,
// Container, ColumnSet/Column, ActionSet, CodeBlock, Input.Text,
// Input.Number, Input.Date, Input.Toggle and Input.ChoiceSet.
//
// Actions: Action.OpenUrl, Action.Submit, Action.Execute, Action.ShowCard
// and Action.ToggleVisibility.
//
// # Usage
//
//	var doc any
//	if err := json.Unmarshal(data, &doc); err != nil {
//	    return err
//	}
//	c, err := card.Parse(doc)
//	if err != nil {
//	    return err // *card.SchemaError
//	}
//	fmt.Println(c.Render(80, card.DefaultPalette()))
package card
