// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns one conversation message into a terminal displayable.
//
// The decision is a three-way branch:
//
//   - user messages are shown verbatim, right-aligned in a bubble;
//   - assistant messages whose content parses as a JSON document go to the
//     card engine, and a document that is not a valid card renders as an
//     empty region (the failure is logged, never shown as prose);
//   - everything else is Markdown prose, converted by glamour.
//
// Classify exposes the JSON parse check as an explicit tagged result so callers
// never have to infer the branch from an error.
package render
