// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

// =============================================================================
// CARD
// =============================================================================

// TypeAdaptiveCard is the required value of the root "type" property.
const TypeAdaptiveCard = "AdaptiveCard"

// Card is a validated Adaptive Card.
type Card struct {
	Version      string
	FallbackText string
	Body         []Element
	Actions      []Action
}

// =============================================================================
// ELEMENTS
// =============================================================================

// Element is any body element.
type Element interface {
	// Type returns the schema type name, e.g. "TextBlock".
	Type() string
	base() *Base
}

// Base holds the properties shared by every element.
type Base struct {
	ID                  string
	Visible             bool
	Separator           bool
	Spacing             string
	HorizontalAlignment string
}

func (b *Base) base() *Base { return b }

// TextBlock displays a run of text.
type TextBlock struct {
	Base
	Text     string
	Size     string
	Weight   string
	Color    string
	IsSubtle bool
	Wrap     bool
	MaxLines int
}

func (*TextBlock) Type() string { return "TextBlock" }

// TextRun is one inline of a RichTextBlock.
type TextRun struct {
	Text          string
	Size          string
	Weight        string
	Color         string
	IsSubtle      bool
	Italic        bool
	Strikethrough bool
	Underline     bool
	Highlight     bool
}

// RichTextBlock displays a sequence of individually styled runs.
type RichTextBlock struct {
	Base
	Inlines []TextRun
}

func (*RichTextBlock) Type() string { return "RichTextBlock" }

// Image references a picture by URL. Terminals show a placeholder.
type Image struct {
	Base
	URL     string
	AltText string
	Size    string
}

func (*Image) Type() string { return "Image" }

// Fact is one title/value row of a FactSet.
type Fact struct {
	Title string
	Value string
}

// FactSet displays aligned title/value pairs.
type FactSet struct {
	Base
	Facts []Fact
}

func (*FactSet) Type() string { return "FactSet" }

// Container groups elements, optionally with an accent style.
type Container struct {
	Base
	Style string
	Items []Element
}

func (*Container) Type() string { return "Container" }

// Column is one column of a ColumnSet. Width is "auto", "stretch", a
// weight ("2") or a pixel width ("80px"); empty means "stretch".
type Column struct {
	Base
	Width string
	Style string
	Items []Element
}

func (*Column) Type() string { return "Column" }

// ColumnSet lays columns out side by side.
type ColumnSet struct {
	Base
	Columns []*Column
}

func (*ColumnSet) Type() string { return "ColumnSet" }

// ActionSet displays a row of actions inside the body.
type ActionSet struct {
	Base
	Actions []Action
}

func (*ActionSet) Type() string { return "ActionSet" }

// CodeBlock displays a syntax-highlighted snippet.
type CodeBlock struct {
	Base
	CodeSnippet     string
	Language        string
	StartLineNumber int
}

func (*CodeBlock) Type() string { return "CodeBlock" }

// =============================================================================
// INPUTS
// =============================================================================

// InputText is a single or multi-line text field.
type InputText struct {
	Base
	Label       string
	Placeholder string
	Value       string
	IsMultiline bool
}

func (*InputText) Type() string { return "Input.Text" }

// InputNumber is a numeric field.
type InputNumber struct {
	Base
	Label       string
	Placeholder string
	Value       *float64
	Min         *float64
	Max         *float64
}

func (*InputNumber) Type() string { return "Input.Number" }

// InputDate is a date field; Value uses YYYY-MM-DD.
type InputDate struct {
	Base
	Label       string
	Placeholder string
	Value       string
}

func (*InputDate) Type() string { return "Input.Date" }

// InputToggle is a checkbox.
type InputToggle struct {
	Base
	Label    string
	Title    string
	Value    string
	ValueOn  string
	ValueOff string
}

func (*InputToggle) Type() string { return "Input.Toggle" }

// Checked reports whether the toggle's value equals its "on" value.
func (t *InputToggle) Checked() bool {
	return t.Value == t.ValueOn
}

// Choice is one option of an Input.ChoiceSet.
type Choice struct {
	Title string
	Value string
}

// InputChoiceSet is a dropdown, radio or checkbox list.
type InputChoiceSet struct {
	Base
	Label         string
	Placeholder   string
	Style         string
	IsMultiSelect bool
	Value         string
	Choices       []Choice
}

func (*InputChoiceSet) Type() string { return "Input.ChoiceSet" }

// Selected reports whether the choice value is part of the current value.
// Multi-select values are comma separated.
func (c *InputChoiceSet) Selected(value string) bool {
	if !c.IsMultiSelect {
		return c.Value == value
	}
	for _, v := range splitComma(c.Value) {
		if v == value {
			return true
		}
	}
	return false
}

// =============================================================================
// ACTIONS
// =============================================================================

// Action type names.
const (
	ActionOpenURL          = "Action.OpenUrl"
	ActionSubmit           = "Action.Submit"
	ActionExecute          = "Action.Execute"
	ActionShowCard         = "Action.ShowCard"
	ActionToggleVisibility = "Action.ToggleVisibility"
)

// Action is a button. Only the fields relevant to Type are set.
type Action struct {
	Type  string
	ID    string
	Title string
	Style string

	URL            string   // OpenUrl
	Verb           string   // Execute
	Data           any      // Submit, Execute
	Card           *Card    // ShowCard
	TargetElements []string // ToggleVisibility
}
