// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseJSON decodes data and validates it as a card.
func ParseJSON(data []byte) (*Card, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("card: decode: %w", err)
	}
	return Parse(doc)
}

// Parse validates a decoded JSON value (as produced by encoding/json into
// an any) and returns the typed card. The error is always a *SchemaError.
func Parse(doc any) (*Card, error) {
	return parseCard(doc, "$")
}

func parseCard(v any, path string) (*Card, error) {
	o, err := asObject(v, path)
	if err != nil {
		return nil, err
	}

	typ, err := o.str("type", true)
	if err != nil {
		return nil, err
	}
	if typ != TypeAdaptiveCard {
		return nil, schemaErr(o.at("type"), "expected %q, got %q", TypeAdaptiveCard, typ)
	}

	c := &Card{}
	if c.Version, err = o.str("version", false); err != nil {
		return nil, err
	}
	if c.FallbackText, err = o.str("fallbackText", false); err != nil {
		return nil, err
	}
	if c.Body, err = o.elements("body", false); err != nil {
		return nil, err
	}
	if c.Actions, err = o.actions("actions", false); err != nil {
		return nil, err
	}
	return c, nil
}

// =============================================================================
// ELEMENTS
// =============================================================================

// parseElement returns a nil element without error when an unknown element
// asks to be dropped via "fallback": "drop".
func parseElement(v any, path string) (Element, error) {
	o, err := asObject(v, path)
	if err != nil {
		return nil, err
	}
	typ, err := o.str("type", true)
	if err != nil {
		return nil, err
	}
	b, err := o.base()
	if err != nil {
		return nil, err
	}

	switch typ {
	case "TextBlock":
		e := &TextBlock{Base: b}
		err = o.all(
			o.strInto(&e.Text, "text", true),
			o.strInto(&e.Size, "size", false),
			o.strInto(&e.Weight, "weight", false),
			o.strInto(&e.Color, "color", false),
			o.boolInto(&e.IsSubtle, "isSubtle", false),
			o.boolInto(&e.Wrap, "wrap", false),
			o.intInto(&e.MaxLines, "maxLines", 0),
		)
		return e, err

	case "RichTextBlock":
		e := &RichTextBlock{Base: b}
		e.Inlines, err = o.inlines()
		return e, err

	case "Image":
		e := &Image{Base: b}
		err = o.all(
			o.strInto(&e.URL, "url", true),
			o.strInto(&e.AltText, "altText", false),
			o.strInto(&e.Size, "size", false),
		)
		return e, err

	case "FactSet":
		e := &FactSet{Base: b}
		e.Facts, err = o.facts()
		return e, err

	case "Container":
		e := &Container{Base: b}
		if err = o.strInto(&e.Style, "style", false)(); err != nil {
			return nil, err
		}
		e.Items, err = o.elements("items", true)
		return e, err

	case "Column":
		return parseColumn(o, b)

	case "ColumnSet":
		e := &ColumnSet{Base: b}
		arr, err := o.array("columns", false)
		if err != nil {
			return nil, err
		}
		for i, item := range arr {
			cpath := fmt.Sprintf("%s[%d]", o.at("columns"), i)
			co, err := asObject(item, cpath)
			if err != nil {
				return nil, err
			}
			if t, err := co.str("type", false); err != nil {
				return nil, err
			} else if t != "" && t != "Column" {
				return nil, schemaErr(co.at("type"), "expected \"Column\", got %q", t)
			}
			cb, err := co.base()
			if err != nil {
				return nil, err
			}
			col, err := parseColumn(co, cb)
			if err != nil {
				return nil, err
			}
			e.Columns = append(e.Columns, col)
		}
		return e, nil

	case "ActionSet":
		e := &ActionSet{Base: b}
		e.Actions, err = o.actions("actions", true)
		return e, err

	case "CodeBlock":
		e := &CodeBlock{Base: b}
		err = o.all(
			o.strInto(&e.CodeSnippet, "codeSnippet", true),
			o.strInto(&e.Language, "language", false),
			o.intInto(&e.StartLineNumber, "startLineNumber", 1),
		)
		return e, err

	case "Input.Text":
		e := &InputText{Base: b}
		err = o.all(
			o.requireID(&e.Base),
			o.strInto(&e.Label, "label", false),
			o.strInto(&e.Placeholder, "placeholder", false),
			o.strInto(&e.Value, "value", false),
			o.boolInto(&e.IsMultiline, "isMultiline", false),
		)
		return e, err

	case "Input.Number":
		e := &InputNumber{Base: b}
		err = o.all(
			o.requireID(&e.Base),
			o.strInto(&e.Label, "label", false),
			o.strInto(&e.Placeholder, "placeholder", false),
			o.numInto(&e.Value, "value"),
			o.numInto(&e.Min, "min"),
			o.numInto(&e.Max, "max"),
		)
		return e, err

	case "Input.Date":
		e := &InputDate{Base: b}
		err = o.all(
			o.requireID(&e.Base),
			o.strInto(&e.Label, "label", false),
			o.strInto(&e.Placeholder, "placeholder", false),
			o.strInto(&e.Value, "value", false),
		)
		return e, err

	case "Input.Toggle":
		e := &InputToggle{Base: b}
		err = o.all(
			o.requireID(&e.Base),
			o.strInto(&e.Label, "label", false),
			o.strInto(&e.Title, "title", true),
			o.scalarInto(&e.ValueOn, "valueOn", "true"),
			o.scalarInto(&e.ValueOff, "valueOff", "false"),
		)
		if err != nil {
			return nil, err
		}
		err = o.scalarInto(&e.Value, "value", e.ValueOff)()
		return e, err

	case "Input.ChoiceSet":
		e := &InputChoiceSet{Base: b}
		err = o.all(
			o.requireID(&e.Base),
			o.strInto(&e.Label, "label", false),
			o.strInto(&e.Placeholder, "placeholder", false),
			o.strInto(&e.Style, "style", false),
			o.boolInto(&e.IsMultiSelect, "isMultiSelect", false),
			o.scalarInto(&e.Value, "value", ""),
		)
		if err != nil {
			return nil, err
		}
		e.Choices, err = o.choices()
		return e, err
	}

	return o.fallback(typ)
}

func parseColumn(o object, b Base) (*Column, error) {
	col := &Column{Base: b}
	if err := o.all(
		o.scalarInto(&col.Width, "width", ""),
		o.strInto(&col.Style, "style", false),
	); err != nil {
		return nil, err
	}
	var err error
	col.Items, err = o.elements("items", false)
	return col, err
}

// fallback applies the element-level "fallback" property to an element of
// unknown type: "drop" removes it, an object replaces it.
func (o object) fallback(typ string) (Element, error) {
	fb, ok := o.m["fallback"]
	if !ok {
		return nil, schemaErr(o.at("type"), "unknown element type %q", typ)
	}
	if s, ok := fb.(string); ok {
		if s == "drop" {
			return nil, nil
		}
		return nil, schemaErr(o.at("fallback"), "unsupported fallback %q", s)
	}
	return parseElement(fb, o.at("fallback"))
}

// =============================================================================
// ACTIONS
// =============================================================================

func parseAction(v any, path string) (Action, error) {
	o, err := asObject(v, path)
	if err != nil {
		return Action{}, err
	}

	var a Action
	if err := o.all(
		o.strInto(&a.Type, "type", true),
		o.strInto(&a.ID, "id", false),
		o.strInto(&a.Title, "title", false),
		o.strInto(&a.Style, "style", false),
	); err != nil {
		return Action{}, err
	}

	switch a.Type {
	case ActionOpenURL:
		err = o.strInto(&a.URL, "url", true)()
	case ActionSubmit:
		a.Data = o.m["data"]
	case ActionExecute:
		a.Data = o.m["data"]
		err = o.strInto(&a.Verb, "verb", false)()
	case ActionShowCard:
		cv, ok := o.m["card"]
		if !ok {
			return Action{}, schemaErr(o.at("card"), "required property is missing")
		}
		a.Card, err = parseCard(cv, o.at("card"))
	case ActionToggleVisibility:
		a.TargetElements, err = o.targets()
	default:
		return Action{}, schemaErr(o.at("type"), "unknown action type %q", a.Type)
	}
	if err != nil {
		return Action{}, err
	}
	return a, nil
}

// =============================================================================
// OBJECT HELPERS
// =============================================================================

type object struct {
	m    map[string]any
	path string
}

func asObject(v any, path string) (object, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return object{}, schemaErr(path, "expected object, got %s", kindOf(v))
	}
	return object{m: m, path: path}, nil
}

func (o object) at(key string) string {
	return o.path + "." + key
}

// all runs setters in order and stops at the first error.
func (o object) all(setters ...func() error) error {
	for _, set := range setters {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

func (o object) str(key string, required bool) (string, error) {
	v, ok := o.m[key]
	if !ok || v == nil {
		if required {
			return "", schemaErr(o.at(key), "required property is missing")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", schemaErr(o.at(key), "expected string, got %s", kindOf(v))
	}
	return s, nil
}

func (o object) strInto(dst *string, key string, required bool) func() error {
	return func() error {
		s, err := o.str(key, required)
		*dst = s
		return err
	}
}

// scalarInto accepts a string, number or boolean and stores its text form.
func (o object) scalarInto(dst *string, key, def string) func() error {
	return func() error {
		switch v := o.m[key].(type) {
		case nil:
			*dst = def
		case string:
			*dst = v
		case bool:
			*dst = strconv.FormatBool(v)
		case float64:
			*dst = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return schemaErr(o.at(key), "expected string, got %s", kindOf(v))
		}
		return nil
	}
}

func (o object) boolInto(dst *bool, key string, def bool) func() error {
	return func() error {
		v, ok := o.m[key]
		if !ok || v == nil {
			*dst = def
			return nil
		}
		b, ok := v.(bool)
		if !ok {
			return schemaErr(o.at(key), "expected boolean, got %s", kindOf(v))
		}
		*dst = b
		return nil
	}
}

func (o object) intInto(dst *int, key string, def int) func() error {
	return func() error {
		v, ok := o.m[key]
		if !ok || v == nil {
			*dst = def
			return nil
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return schemaErr(o.at(key), "expected integer, got %s", kindOf(v))
		}
		*dst = int(f)
		return nil
	}
}

func (o object) numInto(dst **float64, key string) func() error {
	return func() error {
		v, ok := o.m[key]
		if !ok || v == nil {
			return nil
		}
		f, ok := v.(float64)
		if !ok {
			return schemaErr(o.at(key), "expected number, got %s", kindOf(v))
		}
		*dst = &f
		return nil
	}
}

func (o object) array(key string, required bool) ([]any, error) {
	v, ok := o.m[key]
	if !ok || v == nil {
		if required {
			return nil, schemaErr(o.at(key), "required property is missing")
		}
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, schemaErr(o.at(key), "expected array, got %s", kindOf(v))
	}
	return arr, nil
}

func (o object) base() (Base, error) {
	b := Base{}
	err := o.all(
		o.strInto(&b.ID, "id", false),
		o.boolInto(&b.Visible, "isVisible", true),
		o.boolInto(&b.Separator, "separator", false),
		o.strInto(&b.Spacing, "spacing", false),
		o.strInto(&b.HorizontalAlignment, "horizontalAlignment", false),
	)
	b.Spacing = strings.ToLower(b.Spacing)
	b.HorizontalAlignment = strings.ToLower(b.HorizontalAlignment)
	return b, err
}

func (o object) requireID(b *Base) func() error {
	return func() error {
		if b.ID == "" {
			return schemaErr(o.at("id"), "required property is missing")
		}
		return nil
	}
}

func (o object) elements(key string, required bool) ([]Element, error) {
	arr, err := o.array(key, required)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(arr))
	for i, item := range arr {
		el, err := parseElement(item, fmt.Sprintf("%s[%d]", o.at(key), i))
		if err != nil {
			return nil, err
		}
		if el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

func (o object) actions(key string, required bool) ([]Action, error) {
	arr, err := o.array(key, required)
	if err != nil {
		return nil, err
	}
	out := make([]Action, 0, len(arr))
	for i, item := range arr {
		a, err := parseAction(item, fmt.Sprintf("%s[%d]", o.at(key), i))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (o object) inlines() ([]TextRun, error) {
	arr, err := o.array("inlines", false)
	if err != nil {
		return nil, err
	}
	out := make([]TextRun, 0, len(arr))
	for i, item := range arr {
		path := fmt.Sprintf("%s[%d]", o.at("inlines"), i)
		if s, ok := item.(string); ok {
			out = append(out, TextRun{Text: s})
			continue
		}
		ro, err := asObject(item, path)
		if err != nil {
			return nil, err
		}
		var r TextRun
		var typ string
		err = ro.all(
			ro.strInto(&typ, "type", true),
			ro.strInto(&r.Text, "text", true),
			ro.strInto(&r.Size, "size", false),
			ro.strInto(&r.Weight, "weight", false),
			ro.strInto(&r.Color, "color", false),
			ro.boolInto(&r.IsSubtle, "isSubtle", false),
			ro.boolInto(&r.Italic, "italic", false),
			ro.boolInto(&r.Strikethrough, "strikethrough", false),
			ro.boolInto(&r.Underline, "underline", false),
			ro.boolInto(&r.Highlight, "highlight", false),
		)
		if err != nil {
			return nil, err
		}
		if typ != "TextRun" {
			return nil, schemaErr(ro.at("type"), "expected \"TextRun\", got %q", typ)
		}
		out = append(out, r)
	}
	return out, nil
}

func (o object) facts() ([]Fact, error) {
	arr, err := o.array("facts", true)
	if err != nil {
		return nil, err
	}
	out := make([]Fact, 0, len(arr))
	for i, item := range arr {
		fo, err := asObject(item, fmt.Sprintf("%s[%d]", o.at("facts"), i))
		if err != nil {
			return nil, err
		}
		var f Fact
		if err := fo.all(
			fo.strInto(&f.Title, "title", true),
			fo.strInto(&f.Value, "value", true),
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (o object) choices() ([]Choice, error) {
	arr, err := o.array("choices", false)
	if err != nil {
		return nil, err
	}
	out := make([]Choice, 0, len(arr))
	for i, item := range arr {
		co, err := asObject(item, fmt.Sprintf("%s[%d]", o.at("choices"), i))
		if err != nil {
			return nil, err
		}
		var c Choice
		if err := co.all(
			co.strInto(&c.Title, "title", true),
			co.scalarInto(&c.Value, "value", ""),
		); err != nil {
			return nil, err
		}
		if _, ok := co.m["value"]; !ok {
			return nil, schemaErr(co.at("value"), "required property is missing")
		}
		out = append(out, c)
	}
	return out, nil
}

// targets accepts both "id" strings and {"elementId": "id"} objects.
func (o object) targets() ([]string, error) {
	arr, err := o.array("targetElements", true)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for i, item := range arr {
		path := fmt.Sprintf("%s[%d]", o.at("targetElements"), i)
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		to, err := asObject(item, path)
		if err != nil {
			return nil, err
		}
		id, err := to.str("elementId", true)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
