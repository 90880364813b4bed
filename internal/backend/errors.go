package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// Sentinels matched with errors.Is against an *Error.
var (
	ErrNetwork      = errors.New("backend unreachable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrServer       = errors.New("backend error")
	ErrNotAdmin     = errors.New("account is not an admin")
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindUnauthorized
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned by every failed call of the client.
type Error struct {
	Kind    Kind
	Status  int               // 0 for network errors
	Message string            // backend message, or a generic fallback
	Fields  map[string]string // field-level messages for validation errors
	Err     error             // transport error for KindNetwork
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// Message extracts a user-facing message from any error, falling back to def.
func Message(err error, def string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return def
}

// FieldErrors returns the field-level messages of a validation error, or nil.
func FieldErrors(err error) map[string]string {
	var be *Error
	if errors.As(err, &be) && be.Kind == KindValidation {
		return be.Fields
	}
	return nil
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "the server could not be reached", Err: err}
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(status int, body []byte) *Error {
	msg, fields := parseErrorBody(body)
	if msg == "" {
		msg = http.StatusText(status)
	}

	e := &Error{Status: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindValidation
		e.Fields = fields
	}
	return e
}

const maxPlainMessage = 300

// parseErrorBody accepts the shapes the backend produces:
//
//	"Invalid credentials"                 -> message
//	{"message": "..."}                    -> message
//	{"email": "Email already in use"}     -> field errors
//	{"message": "...", "errors": {...}}   -> both
func parseErrorBody(body []byte) (string, map[string]string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return truncate(trimmed, maxPlainMessage), nil
	}

	// "message" wins over "error" when both are present
	var msg string
	for _, k := range []string{"message", "error"} {
		var v string
		if raw, ok := obj[k]; ok && json.Unmarshal(raw, &v) == nil && v != "" {
			msg = v
			break
		}
	}

	fields := map[string]string{}
	for k, raw := range obj {
		switch k {
		case "message", "error":
		case "errors":
			var nested map[string]string
			if json.Unmarshal(raw, &nested) == nil {
				for nk, nv := range nested {
					fields[nk] = nv
				}
			}
		default:
			var v string
			if json.Unmarshal(raw, &v) == nil && v != "" {
				fields[k] = v
			}
		}
	}

	if msg == "" && len(fields) > 0 {
		msg = firstField(fields)
	}
	if len(fields) == 0 {
		fields = nil
	}
	return msg, fields
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// firstField picks a deterministic message when the body only carries field errors.
func firstField(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fields[keys[0]]
}
