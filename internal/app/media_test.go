package app

import (
	"context"
	"errors"
	"testing"

	"taskboard/api/internal/store"
)

func TestImageAttachmentType(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"https://cdn.example.com/a.png", "image"},
		{"/relative/path.gif", "image"},
		{"data:image/png;base64,iVBOR", "image/png"},
		{"data:image/webp;base64,UklGR", "image/webp"},
		{"data:image/svg+xml,%3Csvg%3E", "image/svg+xml"},
		{"DATA:IMAGE/PNG;base64,iVBOR", "image/png"},
		{"data:image/", "image"},
		{"data:text/plain;base64,aGk=", "image"},
	}
	for _, tt := range tests {
		if got := imageAttachmentType(tt.src); got != tt.want {
			t.Errorf("imageAttachmentType(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestExtractEmbeddedImagesCreatesAndDedupes(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	svc := newTestService(fs)

	description := `<p>Before</p>
<img src="https://cdn.example.com/one.png">
<img alt="x" src='https://cdn.example.com/two.png'/>
<img src="https://CDN.example.com/ONE.png">`

	duplicates := svc.extractEmbeddedImages(context.Background(), cardID, description)

	if len(duplicates) != 1 || duplicates[0] != "https://CDN.example.com/ONE.png" {
		t.Errorf("duplicates = %v, want the second one.png reference", duplicates)
	}
	attachments, _ := fs.ListCardAttachments(context.Background(), cardID)
	if len(attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(attachments))
	}
	for _, attachment := range attachments {
		if attachment.Type != "image" {
			t.Errorf("type = %q, want image", attachment.Type)
		}
	}
}

func TestExtractEmbeddedImagesNoImgTags(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	svc := newTestService(fs)

	if dup := svc.extractEmbeddedImages(context.Background(), cardID, "<p>just text</p>"); dup != nil {
		t.Errorf("duplicates = %v, want nil", dup)
	}
	attachments, _ := fs.ListCardAttachments(context.Background(), cardID)
	if len(attachments) != 0 {
		t.Errorf("attachments = %d, want 0", len(attachments))
	}
}

func TestExtractEmbeddedImagesSwallowsStoreErrors(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	fs.insertAttachErr = errors.New("disk full")
	svc := newTestService(fs)

	dup := svc.extractEmbeddedImages(context.Background(), cardID, `<img src="https://cdn.example.com/a.png">`)
	if dup != nil {
		t.Errorf("duplicates = %v, want nil", dup)
	}
}

func TestExtractEmbeddedImagesConvergesOnInsertRace(t *testing.T) {
	fs := newFakeStore()
	_, cardID := seedCard(fs)
	fs.insertAttachErr = store.ErrDuplicateAttachment
	svc := newTestService(fs)

	dup := svc.extractEmbeddedImages(context.Background(), cardID, `<img src="https://cdn.example.com/a.png">`)
	if len(dup) != 1 {
		t.Errorf("duplicates = %v, want the raced reference reported", dup)
	}
}
