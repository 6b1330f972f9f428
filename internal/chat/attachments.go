package chat

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
	"github.com/crewdeck-app/crewdeck-backend/pkg/storage/gcs"
)

// BlobStore is the slice of the blob client the attachment path needs.
type BlobStore interface {
	Upload(ctx context.Context, object string, body io.Reader, contentType string) (string, error)
}

var _ BlobStore = (*gcs.Client)(nil)

// AttachmentUploader stores a chat attachment and produces the MessageInput
// that references it. Objects are namespaced per team under chat/ so a bucket
// listing stays navigable and cross-team URLs are never guessable from a name.
type AttachmentUploader struct {
	blobs BlobStore
}

// NewAttachmentUploader wires the attachment upload path.
func NewAttachmentUploader(blobs BlobStore) (*AttachmentUploader, error) {
	if blobs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "blob store required")
	}
	return &AttachmentUploader{blobs: blobs}, nil
}

// Upload streams the attachment to the blob store and returns a MessageInput
// ready for AppendMessage. Text stays empty; callers may fill it before
// appending.
func (u *AttachmentUploader) Upload(ctx context.Context, actor *models.TeamMember, name string, kind enums.AttachmentKind, body io.Reader, contentType string) (MessageInput, error) {
	if err := requireMember(actor); err != nil {
		return MessageInput{}, err
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return MessageInput{}, pkgerrors.New(pkgerrors.CodeValidation, "attachment name required")
	}
	if kind != "" && !kind.IsValid() {
		return MessageInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid attachment kind")
	}
	if body == nil {
		return MessageInput{}, pkgerrors.New(pkgerrors.CodeValidation, "attachment body required")
	}

	object := attachmentObject(actor.TeamCode, trimmed)
	url, err := u.blobs.Upload(ctx, object, body, contentType)
	if err != nil {
		return MessageInput{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload chat attachment")
	}

	return MessageInput{
		AttachmentURL:  url,
		AttachmentName: trimmed,
		AttachmentKind: kind,
	}, nil
}

// attachmentObject builds the bucket path: chat/<team>/<uuid>-<safe name>.
// The uuid prefix keeps two same-named uploads from clobbering each other.
func attachmentObject(teamCode, name string) string {
	base := path.Base(name)
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return path.Join("chat", strings.ToUpper(strings.TrimSpace(teamCode)), uuid.NewString()+"-"+safe)
}
