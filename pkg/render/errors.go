package render

import (
	"strings"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/submission"
)

// ErrorMapping splits messages into field-level and form-level buckets keyed
// by field id. Notices hold non-blocking advisory messages.
type ErrorMapping struct {
	Fields  map[string][]string
	Form    []string
	Notices map[string][]string
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapResult turns a submission result into messages renderers can attach to
// fields. Blocking messages land in Fields; warning and info findings land in
// Notices.
func MapResult(fieldIDs []string, result submission.Result) ErrorMapping {
	mapping := ErrorMapping{}
	known := idSet(fieldIDs)

	for _, id := range result.BlockingErrors {
		message := result.Errors[id]
		if message == "" {
			continue
		}
		if _, ok := known[id]; !ok {
			mapping.Form = append(mapping.Form, message)
			continue
		}
		mapping.Fields = appendMessages(mapping.Fields, id, message)
	}

	for _, id := range fieldIDs {
		for _, f := range result.Advisories[id] {
			if f.Severity == advisory.SeverityError {
				continue
			}
			mapping.Notices = appendMessages(mapping.Notices, id, f.Message)
		}
	}

	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MapErrorPayload normalises an error payload returned by a submit
// collaborator. Keys may be plain field ids or JSON pointer style paths such
// as "/data/email" or "#/email". Keys that match no field become form-level
// messages so nothing is lost.
func MapErrorPayload(fieldIDs []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{}
	if len(payload) == 0 {
		return mapping
	}
	known := idSet(fieldIDs)

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		id, ok := matchField(rawPath, known)
		if !ok {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields = appendMessages(mapping.Fields, id, normalized...)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

var formLevelKeys = map[string]struct{}{
	"":        {},
	"_form":   {},
	"form":    {},
	"_error":  {},
	"general": {},
}

func matchField(raw string, known map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if _, formLevel := formLevelKeys[strings.ToLower(trimmed)]; formLevel {
		return "", false
	}
	if _, ok := known[trimmed]; ok {
		return trimmed, true
	}

	segments := strings.FieldsFunc(strings.TrimLeft(trimmed, "#$/."), func(r rune) bool {
		return r == '/' || r == '.'
	})
	for len(segments) > 0 {
		if _, wrapper := wrapperSegments[strings.ToLower(segments[0])]; !wrapper {
			break
		}
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", false
	}
	candidate := strings.ReplaceAll(strings.ReplaceAll(segments[0], "~1", "/"), "~0", "~")
	if _, ok := known[candidate]; ok {
		return candidate, true
	}
	return "", false
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func appendMessages(dst map[string][]string, id string, messages ...string) map[string][]string {
	if dst == nil {
		dst = make(map[string][]string)
	}
	dst[id] = normalizeMessages(append(dst[id], messages...))
	return dst
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
