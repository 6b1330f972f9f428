package chat

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
)

type fakeBlobStore struct {
	objects map[string]string
	lastCT  string
}

func (f *fakeBlobStore) Upload(ctx context.Context, object string, body io.Reader, contentType string) (string, error) {
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[object] = string(data)
	f.lastCT = contentType
	return "https://storage.example.com/" + object, nil
}

func TestAttachmentUpload(t *testing.T) {
	blobs := &fakeBlobStore{}
	uploader, err := NewAttachmentUploader(blobs)
	if err != nil {
		t.Fatalf("unexpected uploader error: %v", err)
	}

	input, err := uploader.Upload(context.Background(), member("alice@crew.dev"), "stage plot.pdf", enums.AttachmentKindFile, bytes.NewReader([]byte("pdf-bytes")), "application/pdf")
	if err != nil {
		t.Fatalf("unexpected upload error: %v", err)
	}

	if input.AttachmentName != "stage plot.pdf" {
		t.Fatalf("original name must be preserved on the message, got %q", input.AttachmentName)
	}
	if input.AttachmentKind != enums.AttachmentKindFile {
		t.Fatalf("unexpected kind %q", input.AttachmentKind)
	}
	if !strings.HasPrefix(input.AttachmentURL, "https://storage.example.com/chat/AAAAAA/") {
		t.Fatalf("object must be team-namespaced, got %q", input.AttachmentURL)
	}
	if strings.Contains(input.AttachmentURL, " ") {
		t.Fatalf("object name must be sanitized, got %q", input.AttachmentURL)
	}
	if len(blobs.objects) != 1 || blobs.lastCT != "application/pdf" {
		t.Fatalf("blob not stored as expected: %+v", blobs)
	}

	// Two uploads of the same file land under distinct objects.
	if _, err := uploader.Upload(context.Background(), member("alice@crew.dev"), "stage plot.pdf", enums.AttachmentKindFile, bytes.NewReader(nil), "application/pdf"); err != nil {
		t.Fatalf("unexpected upload error: %v", err)
	}
	if len(blobs.objects) != 2 {
		t.Fatal("same-named uploads must not clobber each other")
	}
}

func TestAttachmentUpload_Validation(t *testing.T) {
	uploader, _ := NewAttachmentUploader(&fakeBlobStore{})
	ctx := context.Background()
	body := bytes.NewReader(nil)

	if _, err := uploader.Upload(ctx, nil, "a.jpg", enums.AttachmentKindImage, body, ""); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if _, err := uploader.Upload(ctx, member("a@crew.dev"), "  ", enums.AttachmentKindImage, body, ""); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for empty name, got %v", err)
	}
	if _, err := uploader.Upload(ctx, member("a@crew.dev"), "a.jpg", enums.AttachmentKind("hologram"), body, ""); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for unknown kind, got %v", err)
	}
	if _, err := uploader.Upload(ctx, member("a@crew.dev"), "a.jpg", enums.AttachmentKindImage, nil, ""); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for nil body, got %v", err)
	}
	if _, err := NewAttachmentUploader(nil); err == nil {
		t.Fatal("expected error for nil blob store")
	}
}
