// Package form drives every dialog and standalone form from a typed field
// schema: binding, local validation and the upload-then-mutate submit flow.
package form

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
)

// MaxUploadSize bounds multipart bodies kept in memory.
const MaxUploadSize = 8 << 20

// ErrInvalid is returned by Submit when local validation fails. No network
// call has been made.
var ErrInvalid = errors.New("form has invalid fields")

type FieldType string

const (
	Text     FieldType = "text"
	Email    FieldType = "email"
	Password FieldType = "password"
	URL      FieldType = "url"
	Bool     FieldType = "bool"
	File     FieldType = "file"
	Select   FieldType = "select"
	Textarea FieldType = "textarea"
)

// Validation message keys, looked up in the common locale namespace.
const (
	MsgRequired         = "err_required"
	MsgInvalidEmail     = "err_invalid_email"
	MsgInvalidURL       = "err_invalid_url"
	MsgInvalidChoice    = "err_invalid_choice"
	MsgPasswordMismatch = "err_password_mismatch"
	MsgUploadFailed     = "err_upload_failed"
	MsgRequestFailed    = "err_request_failed"
)

type Option struct {
	Value string
	Label string
}

// Validator returns a message key, or "" when value is acceptable.
type Validator func(value string) string

type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	ReadOnly bool
	Options  []Option
	// MatchField names another field that must hold the same value.
	MatchField string
	Validator  Validator
}

// Schema is the ordered field list of one form.
type Schema struct {
	Name   string
	Fields []Field
}

func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasFile reports whether the form must be posted as multipart.
func (s *Schema) HasFile() bool {
	for _, f := range s.Fields {
		if f.Type == File {
			return true
		}
	}
	return false
}

// Upload is a file picked in a file field.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func uploadFromHeader(fh *multipart.FileHeader) *Upload {
	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// State is the editable state of an open form.
type State struct {
	Schema *Schema
	Values map[string]string
	Files  map[string]*Upload
	Errors map[string]string
	// Stored holds the file references the record has on the backend. Only
	// these are ever deleted once a new file replaces them.
	Stored map[string]string
	// Message is the form level error shown above the fields.
	Message string
}

// New returns a state pre-filled with initial values, as when a dialog opens.
func (s *Schema) New(initial map[string]string) *State {
	st := &State{
		Schema: s,
		Values: make(map[string]string, len(s.Fields)),
		Files:  map[string]*Upload{},
		Errors: map[string]string{},
		Stored: map[string]string{},
	}
	for k, v := range initial {
		st.Values[k] = v
	}
	return st
}

// BindValues fills a state from submitted values. Unknown names are ignored,
// and so is any posted value of a file field: its reference comes from Keep.
func (s *Schema) BindValues(values url.Values, files map[string]*Upload) *State {
	st := s.New(nil)
	for _, f := range s.Fields {
		switch f.Type {
		case File:
			st.Values[f.Name] = ""
		case Bool:
			st.Values[f.Name] = boolString(values.Get(f.Name))
		case Password:
			st.Values[f.Name] = values.Get(f.Name)
		default:
			st.Values[f.Name] = strings.TrimSpace(values.Get(f.Name))
		}
		if f.Type == File {
			if up, ok := files[f.Name]; ok && up != nil && up.Size > 0 {
				st.Files[f.Name] = up
			}
		}
	}
	return st
}

// Bind parses a url-encoded or multipart request body against the schema.
func (s *Schema) Bind(r *http.Request) (*State, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			return nil, fmt.Errorf("failed to parse %s form: %w", s.Name, err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse %s form: %w", s.Name, err)
	}

	files := map[string]*Upload{}
	if r.MultipartForm != nil {
		for _, f := range s.Fields {
			if f.Type != File {
				continue
			}
			if fhs := r.MultipartForm.File[f.Name]; len(fhs) > 0 {
				files[f.Name] = uploadFromHeader(fhs[0])
			}
		}
	}
	return s.BindValues(r.PostForm, files), nil
}

func boolString(v string) string {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return "true"
	}
	return "false"
}

// Validate runs the local rules and fills Errors. It reports whether the form
// may be submitted.
func (st *State) Validate() bool {
	st.Errors = map[string]string{}
	for _, f := range st.Schema.Fields {
		v := st.Values[f.Name]
		if f.Required && v == "" && (f.Type != File || st.Files[f.Name] == nil) {
			st.Errors[f.Name] = MsgRequired
			continue
		}
		if v == "" {
			continue
		}
		if msg := checkType(f, v); msg != "" {
			st.Errors[f.Name] = msg
			continue
		}
		if f.Validator != nil {
			if msg := f.Validator(v); msg != "" {
				st.Errors[f.Name] = msg
			}
		}
	}

	for _, f := range st.Schema.Fields {
		if f.MatchField == "" {
			continue
		}
		if st.Values[f.Name] != st.Values[f.MatchField] {
			st.Errors[f.Name] = MsgPasswordMismatch
			st.Errors[f.MatchField] = MsgPasswordMismatch
		}
	}
	return len(st.Errors) == 0
}

func checkType(f Field, v string) string {
	switch f.Type {
	case Email:
		if _, err := mail.ParseAddress(v); err != nil {
			return MsgInvalidEmail
		}
	case URL:
		u, err := url.ParseRequestURI(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return MsgInvalidURL
		}
	case Select:
		for _, o := range f.Options {
			if o.Value == v {
				return ""
			}
		}
		return MsgInvalidChoice
	}
	return ""
}

// Keep takes the file references of the stored record from record, as built
// by LinkValues, UserValues or FollowUpValues. A field with a new upload
// keeps its upload.
func (st *State) Keep(record map[string]string) {
	for _, f := range st.Schema.Fields {
		if f.Type != File {
			continue
		}
		ref := record[f.Name]
		st.Stored[f.Name] = ref
		if st.Files[f.Name] == nil {
			st.Values[f.Name] = ref
		}
	}
}

// ClearSecrets blanks every password field before a form is shown again.
func (st *State) ClearSecrets() {
	for _, f := range st.Schema.Fields {
		if f.Type == Password {
			st.Values[f.Name] = ""
		}
	}
}

func (st *State) Get(name string) string { return st.Values[name] }

func (st *State) Bool(name string) bool { return st.Values[name] == "true" }

func (st *State) Error(name string) string { return st.Errors[name] }

func (st *State) HasErrors() bool { return len(st.Errors) > 0 || st.Message != "" }
