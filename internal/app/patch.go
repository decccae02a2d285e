package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskboard/api/internal/store"
)

// CardPatch is a sparse card update. Each field is tri-state: absent,
// explicit null, or a value. Absence and null behave differently per
// field group, so raw JSON presence is kept rather than plain pointers.
type CardPatch struct {
	fields map[string]json.RawMessage
}

// Mutable card fields accepted in a patch, in the order they are applied.
var cardPatchKeys = []string{
	"title", "description", "position", "listId", "isCompleted",
	"startDate", "dueDate", "isRecurring", "recurringType", "reminderType",
}

// DecodeCardPatch parses a request body into a CardPatch. Unknown keys are
// ignored; a syntactically invalid body is an error.
func DecodeCardPatch(body []byte) (CardPatch, error) {
	if len(body) == 0 {
		return CardPatch{}, fmt.Errorf("empty body")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return CardPatch{}, fmt.Errorf("invalid JSON body")
	}

	fields := make(map[string]json.RawMessage)
	for _, key := range cardPatchKeys {
		if value, ok := raw[key]; ok {
			fields[key] = value
		}
	}
	return CardPatch{fields: fields}, nil
}

// Has reports whether the key appeared in the patch at all, null included.
func (p CardPatch) Has(key string) bool {
	_, ok := p.fields[key]
	return ok
}

func (p CardPatch) isNull(key string) bool {
	raw, ok := p.fields[key]
	return ok && strings.TrimSpace(string(raw)) == "null"
}

func (p CardPatch) stringValue(key string) (string, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (p CardPatch) floatValue(key string) (float64, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func (p CardPatch) boolValue(key string) (bool, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Title returns the new title when present and usable.
func (p CardPatch) Title() (string, bool) {
	s, ok := p.stringValue("title")
	if !ok || strings.TrimSpace(s) == "" {
		// Cards keep their title; an empty rename is dropped.
		return "", false
	}
	return s, true
}

// Description returns the new description when present and non-null.
func (p CardPatch) Description() (string, bool) {
	return p.stringValue("description")
}

// Accepted timestamp layouts for date fields, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate applies the lenient date rule: null or an unparsable value both
// clear the field instead of failing the request.
func parseDate(raw json.RawMessage) *time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Resolve produces the minimal change set against the prior card state.
// Keys map to card columns; values are what to persist. An empty map means
// the update is a no-op and nothing should be written.
func (p CardPatch) Resolve(prior store.Card) map[string]any {
	changes := make(map[string]any)

	if title, ok := p.Title(); ok && title != prior.Title {
		changes["title"] = title
	}

	if !p.isNull("description") {
		if desc, ok := p.Description(); ok {
			if prior.Description == nil || *prior.Description != desc {
				changes["description"] = desc
			}
		}
	}

	if !p.isNull("position") {
		if pos, ok := p.floatValue("position"); ok && pos != prior.Position {
			changes["position"] = pos
		}
	}

	if !p.isNull("listId") {
		if listID, ok := p.stringValue("listId"); ok && listID != "" && listID != prior.ListID {
			changes["list_id"] = listID
		}
	}

	if !p.isNull("isCompleted") {
		if completed, ok := p.boolValue("isCompleted"); ok && completed != prior.IsCompleted {
			changes["is_completed"] = completed
		}
	}

	// Date fields: presence alone triggers processing, null and garbage
	// both clear.
	if p.Has("startDate") {
		next := p.dateValue("startDate")
		if !sameTime(prior.StartDate, next) {
			changes["start_date"] = next
		}
	}
	if p.Has("dueDate") {
		next := p.dateValue("dueDate")
		if !sameTime(prior.DueDate, next) {
			changes["due_date"] = next
		}
	}

	if p.Has("isRecurring") {
		recurring, _ := p.boolValue("isRecurring")
		if recurring != prior.IsRecurring {
			changes["is_recurring"] = recurring
		}
	}

	// Passed through whenever present, null included. The model does not tie
	// these to is_recurring or due_date.
	if p.Has("recurringType") {
		next := nullableString(p, "recurringType")
		if !sameStringPtr(prior.RecurringType, next) {
			changes["recurring_type"] = next
		}
	}
	if p.Has("reminderType") {
		next := nullableString(p, "reminderType")
		if !sameStringPtr(prior.ReminderType, next) {
			changes["reminder_type"] = next
		}
	}

	return changes
}

func (p CardPatch) dateValue(key string) *time.Time {
	if p.isNull(key) {
		return nil
	}
	return parseDate(p.fields[key])
}

func nullableString(p CardPatch, key string) *string {
	if p.isNull(key) {
		return nil
	}
	if s, ok := p.stringValue(key); ok {
		return &s
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
