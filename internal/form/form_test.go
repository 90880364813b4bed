package form

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

type fakeFiles struct {
	mu      sync.Mutex
	events  []string
	putErr  error
	deleted []string
}

func (f *fakeFiles) Put(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	data, _ := io.ReadAll(r)
	f.events = append(f.events, "put:"+name+":"+string(data))
	return "https://files.test/" + name, nil
}

func (f *fakeFiles) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "delete:"+ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

func memUpload(name, content string) *Upload {
	return &Upload{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(content)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func TestValidateRequiredFields(t *testing.T) {
	st := UserCreate.BindValues(url.Values{"name": {"Ana"}}, nil)
	assert.False(t, st.Validate())
	assert.Equal(t, MsgRequired, st.Error("username"))
	assert.Equal(t, MsgRequired, st.Error("email"))
	assert.Empty(t, st.Error("name"))
	assert.Empty(t, st.Error("img"), "optional file field")
}

func TestValidatePasswordMismatchMarksBothFields(t *testing.T) {
	st := PasswordReset.BindValues(url.Values{
		"password":        {"secret-1"},
		"confirmPassword": {"secret-2"},
	}, nil)

	assert.False(t, st.Validate())
	assert.Equal(t, MsgPasswordMismatch, st.Error("password"))
	assert.Equal(t, MsgPasswordMismatch, st.Error("confirmPassword"))

	st = ChangePassword.BindValues(url.Values{
		"oldPassword":     {"old"},
		"newPassword":     {"new"},
		"confirmPassword": {"new"},
	}, nil)
	assert.True(t, st.Validate())
}

func TestValidateTypes(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
		values url.Values
		field  string
		want   string
	}{
		{"bad email", Login, url.Values{"email": {"not-an-email"}, "password": {"x"}}, "email", MsgInvalidEmail},
		{"good email", Login, url.Values{"email": {"a@b.co"}, "password": {"x"}}, "email", ""},
		{"bad url", LinkEdit, url.Values{"destinationUrl": {"example.com"}}, "destinationUrl", MsgInvalidURL},
		{"ftp url", LinkEdit, url.Values{"destinationUrl": {"ftp://example.com"}}, "destinationUrl", MsgInvalidURL},
		{"good url", LinkEdit, url.Values{"destinationUrl": {"https://example.com/x"}}, "destinationUrl", ""},
		{"bad choice", UsersStatus, url.Values{"status": {"deleted"}}, "status", MsgInvalidChoice},
		{"good choice", UsersStatus, url.Values{"status": {"blocked"}}, "status", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.schema.BindValues(tt.values, nil)
			st.Validate()
			assert.Equal(t, tt.want, st.Error(tt.field))
		})
	}
}

func TestBindValuesNormalises(t *testing.T) {
	st := UserEdit.BindValues(url.Values{
		"name":      {"  Ana  "},
		"isBlocked": {"on"},
		"unknown":   {"x"},
	}, map[string]*Upload{"img": {Size: 0}})

	assert.Equal(t, "Ana", st.Get("name"))
	assert.True(t, st.Bool("isBlocked"))
	assert.NotContains(t, st.Values, "unknown")
	assert.Empty(t, st.Files, "empty uploads are ignored")

	pw := Login.BindValues(url.Values{"password": {" spaced "}}, nil)
	assert.Equal(t, " spaced ", pw.Get("password"), "passwords are not trimmed")
}

func TestBindMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Ana"))
	require.NoError(t, mw.WriteField("email", "ana@example.com"))
	require.NoError(t, mw.WriteField("img", "https://files.test/old.png"))
	fw, err := mw.CreateFormFile("img", "new.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("PNG"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	st, err := UserEdit.Bind(r)
	require.NoError(t, err)
	assert.Empty(t, st.Get("img"), "posted file references are not trusted")
	require.Contains(t, st.Files, "img")
	assert.Equal(t, "new.png", st.Files["img"].Filename)
}

func TestSubmitInvalidNeverCallsMutation(t *testing.T) {
	files := &fakeFiles{}
	sub := NewSubmitter(files, logger.Nop())
	st := UserCreate.BindValues(url.Values{}, map[string]*Upload{"img": memUpload("a.png", "x")})

	called := false
	_, err := sub.Submit(context.Background(), st, func(context.Context, *State) (string, error) {
		called = true
		return "", nil
	})

	assert.ErrorIs(t, err, ErrInvalid)
	assert.False(t, called)
	assert.Empty(t, files.events, "nothing is uploaded before validation passes")
}

func TestSubmitUploadsBeforeMutationAndDeletesReplacedFile(t *testing.T) {
	files := &fakeFiles{}
	sub := NewSubmitter(files, logger.Nop())
	st := UserEdit.BindValues(url.Values{
		"username": {"ana"},
		"name":     {"Ana"},
		"email":    {"ana@example.com"},
	}, map[string]*Upload{"img": memUpload("new.png", "PNG")})
	st.Keep(UserValues(domain.User{Img: "https://files.test/old.png"}))

	var sent string
	msg, err := sub.Submit(context.Background(), st, func(_ context.Context, st *State) (string, error) {
		files.mu.Lock()
		files.events = append(files.events, "mutate")
		files.mu.Unlock()
		sent = st.UserUpdate().Img
		return "User updated", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "User updated", msg)
	assert.Equal(t, "https://files.test/new.png", sent)
	assert.Equal(t, []string{
		"put:new.png:PNG",
		"mutate",
		"delete:https://files.test/old.png",
	}, files.events)
}

func TestSubmitFailureKeepsValuesAndCleansUpUpload(t *testing.T) {
	files := &fakeFiles{}
	sub := NewSubmitter(files, logger.Nop())
	st := UserEdit.BindValues(url.Values{
		"name":  {"Ana"},
		"email": {"taken@example.com"},
	}, map[string]*Upload{"img": memUpload("new.png", "PNG")})
	st.Keep(UserValues(domain.User{Img: "https://files.test/old.png"}))

	backendErr := &backend.Error{
		Kind:    backend.KindValidation,
		Status:  400,
		Message: "Email already in use",
		Fields:  map[string]string{"email": "Email already in use", "other": "ignored"},
	}
	_, err := sub.Submit(context.Background(), st, func(context.Context, *State) (string, error) {
		return "", backendErr
	})

	assert.ErrorIs(t, err, backend.ErrValidation)
	assert.Equal(t, "Email already in use", st.Message)
	assert.Equal(t, "Email already in use", st.Error("email"))
	assert.NotContains(t, st.Errors, "other")
	assert.Equal(t, "taken@example.com", st.Get("email"))
	assert.Equal(t, "https://files.test/old.png", st.Get("img"), "reference reverts to the stored file")
	assert.Equal(t, []string{"https://files.test/new.png"}, files.deleted)
}

func TestSubmitUploadFailure(t *testing.T) {
	files := &fakeFiles{putErr: errors.New("bucket gone")}
	sub := NewSubmitter(files, logger.Nop())
	st := UserEdit.BindValues(url.Values{"name": {"Ana"}, "email": {"a@b.co"}},
		map[string]*Upload{"img": memUpload("new.png", "PNG")})

	called := false
	_, err := sub.Submit(context.Background(), st, func(context.Context, *State) (string, error) {
		called = true
		return "", nil
	})

	assert.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, MsgUploadFailed, st.Message)
}

func TestSubmitWithoutNewFileDeletesNothing(t *testing.T) {
	files := &fakeFiles{}
	sub := NewSubmitter(files, logger.Nop())
	st := FollowUpEdit.BindValues(url.Values{"subject": {"Hi"}}, nil)
	st.Keep(FollowUpValues(domain.FollowUp{Img: "https://files.test/keep.png"}))

	var sent string
	_, err := sub.Submit(context.Background(), st, func(_ context.Context, st *State) (string, error) {
		sent = st.FollowUpUpdate().Img
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "https://files.test/keep.png", sent, "the stored image is kept")
	assert.Empty(t, files.events)
}

func TestSubmitDeletesOnlyTheStoredFile(t *testing.T) {
	files := &fakeFiles{}
	sub := NewSubmitter(files, logger.Nop())
	st := UserEdit.BindValues(url.Values{
		"name":  {"Ana"},
		"email": {"ana@example.com"},
		"img":   {"https://files.test/someone-else.png"},
	}, map[string]*Upload{"img": memUpload("new.png", "PNG")})
	st.Keep(UserValues(domain.User{Img: "https://files.test/ana.png"}))

	_, err := sub.Submit(context.Background(), st, func(context.Context, *State) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://files.test/ana.png"}, files.deleted)
}

func TestSubmitWithoutStoredFileDeletesNothing(t *testing.T) {
	files := &fakeFiles{}
	sub := NewSubmitter(files, logger.Nop())
	st := LinkEdit.BindValues(url.Values{
		"destinationUrl": {"https://a.test"},
		"image":          {"https://files.test/someone-else.png"},
	}, map[string]*Upload{"image": memUpload("new.png", "PNG")})
	st.Keep(LinkValues(domain.Link{}))

	_, err := sub.Submit(context.Background(), st, func(context.Context, *State) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Empty(t, files.deleted)
}

func TestInitialValues(t *testing.T) {
	st := LinkEdit.New(map[string]string{"destinationUrl": "https://a.test", "isActive": "true"})
	assert.True(t, st.Bool("isActive"))
	assert.Equal(t, "https://a.test", st.LinkUpdate().DestinationURL)
}

func TestClearSecretsBlanksOnlyPasswords(t *testing.T) {
	st := UserCreate.BindValues(url.Values{
		"username":        {"grace"},
		"email":           {"grace@example.com"},
		"password":        {"Pa55-word!"},
		"confirmPassword": {"Pa55-word!"},
	}, nil)

	st.ClearSecrets()
	assert.Empty(t, st.Get("password"))
	assert.Empty(t, st.Get("confirmPassword"))
	assert.Equal(t, "grace", st.Get("username"))
	assert.Equal(t, "grace@example.com", st.Get("email"))
}
