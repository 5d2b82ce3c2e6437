// ABOUTME: Partial source records used for idempotent upserts into the source registry
// ABOUTME: Each field is tri-state so an explicit null deletes instead of overwriting

package domain

import (
	"bytes"
	"encoding/json"
)

// Field is one patch value: untouched, set to a value, or cleared
type Field[T any] struct {
	state fieldState
	value T
}

type fieldState uint8

const (
	fieldUntouched fieldState = iota
	fieldSet
	fieldCleared
)

// Set returns a field that overwrites the current value
func Set[T any](v T) Field[T] {
	return Field[T]{state: fieldSet, value: v}
}

// Clear returns a field that deletes the current value
func Clear[T any]() Field[T] {
	return Field[T]{state: fieldCleared}
}

// IsSet reports whether the field carries a value
func (f Field[T]) IsSet() bool { return f.state == fieldSet }

// IsCleared reports whether the field deletes the current value
func (f Field[T]) IsCleared() bool { return f.state == fieldCleared }

// Value returns the carried value (zero when not set)
func (f Field[T]) Value() T { return f.value }

func (f Field[T]) touched() bool { return f.state != fieldUntouched }

func applyField[T any](dst *T, f Field[T]) {
	switch f.state {
	case fieldSet:
		*dst = f.value
	case fieldCleared:
		var zero T
		*dst = zero
	}
}

// SourcePatch is a partial source entry merged by the source registry
type SourcePatch struct {
	ContentURLs Field[[]string]
	CDNURLs     Field[[]string]
	UpdateAfter Field[float64]
	Content     Field[ContentKind]
	Title       Field[string]
	Group       Field[string]
	SupportURL  Field[string]
	Submitter   Field[string]
	LastError   Field[*ErrorRecord]
}

// PatchFromEntry builds a patch that sets every populated field of e
func PatchFromEntry(e SourceEntry) SourcePatch {
	p := SourcePatch{
		ContentURLs: Set(e.ContentURLs),
		UpdateAfter: Set(e.UpdateAfter),
	}
	if len(e.CDNURLs) > 0 {
		p.CDNURLs = Set(e.CDNURLs)
	}
	if e.Content != "" {
		p.Content = Set(e.Content)
	}
	if e.Title != "" {
		p.Title = Set(e.Title)
	}
	if e.Group != "" {
		p.Group = Set(e.Group)
	}
	if e.SupportURL != "" {
		p.SupportURL = Set(e.SupportURL)
	}
	if e.Submitter != "" {
		p.Submitter = Set(e.Submitter)
	}
	if e.LastError != nil {
		p.LastError = Set(e.LastError)
	}
	return p
}

var jsonNull = []byte("null")

// UnmarshalJSON decodes a manifest record. A key holding null clears the
// field; a key holding a value sets it; missing keys leave it untouched.
func (p *SourcePatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, value := range raw {
		isNull := bytes.Equal(bytes.TrimSpace(value), jsonNull)
		switch key {
		case "contentURL":
			if isNull {
				p.ContentURLs = Clear[[]string]()
			} else {
				p.ContentURLs = Set(decodeURLList(value))
			}
		case "cdnURLs":
			if isNull {
				p.CDNURLs = Clear[[]string]()
			} else {
				p.CDNURLs = Set(decodeURLList(value))
			}
		case "updateAfter":
			var days float64
			if isNull {
				p.UpdateAfter = Clear[float64]()
			} else if err := json.Unmarshal(value, &days); err != nil {
				p.UpdateAfter = Set(DefaultUpdateAfter)
			} else {
				p.UpdateAfter = Set(days)
			}
		case "content":
			decodeStringField(value, isNull, &p.Content)
		case "title":
			decodeStringField(value, isNull, &p.Title)
		case "group":
			decodeStringField(value, isNull, &p.Group)
		case "supportURL":
			decodeStringField(value, isNull, &p.SupportURL)
		case "submitter":
			decodeStringField(value, isNull, &p.Submitter)
		case "error":
			if isNull {
				p.LastError = Clear[*ErrorRecord]()
				continue
			}
			var rec ErrorRecord
			if err := json.Unmarshal(value, &rec); err == nil {
				p.LastError = Set(&rec)
			}
		}
	}
	return nil
}

// decodeURLList accepts a single string or an array of strings; any other
// shape yields an empty list
func decodeURLList(value json.RawMessage) []string {
	var one string
	if err := json.Unmarshal(value, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(value, &many); err == nil && many != nil {
		return many
	}
	return []string{}
}

func decodeStringField[T ~string](value json.RawMessage, isNull bool, dst *Field[T]) {
	if isNull {
		*dst = Clear[T]()
		return
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		*dst = Set(T(s))
	}
}
