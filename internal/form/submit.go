package form

import (
	"context"
	"fmt"
	"io"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

// FileStore is the external file storage collaborator.
type FileStore interface {
	// Put stores the content and returns the reference to send to the backend.
	Put(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Mutation performs the backend call for a validated state and returns the
// backend's message.
type Mutation func(ctx context.Context, st *State) (string, error)

// Submitter runs the submit flow shared by every dialog:
// validate, upload new files, mutate, then clean up the files that lost.
type Submitter struct {
	files  FileStore
	logger logger.Logger
}

func NewSubmitter(files FileStore, log logger.Logger) *Submitter {
	return &Submitter{files: files, logger: log}
}

// Submit returns ErrInvalid without any network call when local validation
// fails. On a backend failure the entered values stay in st, the message and
// field errors are set on it and the error is returned.
func (s *Submitter) Submit(ctx context.Context, st *State, mutate Mutation) (string, error) {
	if !st.Validate() {
		return "", ErrInvalid
	}

	replaced := map[string]string{} // field -> value before the upload
	uploaded := map[string]string{} // field -> new reference
	for name, up := range st.Files {
		ref, err := s.upload(ctx, up)
		if err != nil {
			s.discard(ctx, uploaded)
			st.Message = backend.Message(err, MsgUploadFailed)
			return "", fmt.Errorf("failed to upload %s: %w", name, err)
		}
		replaced[name] = st.Values[name]
		uploaded[name] = ref
		st.Values[name] = ref
	}

	msg, err := mutate(ctx, st)
	if err != nil {
		s.discard(ctx, uploaded)
		for name, prev := range replaced {
			st.Values[name] = prev
		}
		for name, fe := range backend.FieldErrors(err) {
			if _, ok := st.Schema.Field(name); ok {
				st.Errors[name] = fe
			}
		}
		st.Message = backend.Message(err, MsgRequestFailed)
		return "", err
	}

	// the update is committed; a failed delete only leaves an orphan file
	for name, ref := range uploaded {
		if prev := st.Stored[name]; prev != "" && prev != ref {
			s.remove(ctx, prev)
		}
	}
	return msg, nil
}

func (s *Submitter) upload(ctx context.Context, up *Upload) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("no file storage configured")
	}
	rc, err := up.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return s.files.Put(ctx, up.Filename, up.ContentType, rc, up.Size)
}

func (s *Submitter) discard(ctx context.Context, uploaded map[string]string) {
	for _, ref := range uploaded {
		s.remove(ctx, ref)
	}
}

func (s *Submitter) remove(ctx context.Context, ref string) {
	if err := s.files.Delete(ctx, ref); err != nil {
		s.logger.Warn("stored file not deleted",
			logger.String("ref", ref),
			logger.Error(err))
	}
}
