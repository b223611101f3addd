package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/types"
)

type fakeBucket struct {
	uploads []string
	deleted []string
}

func (f *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	if _, err := io.Copy(io.Discard, file); err != nil {
		return err
	}
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func newTestSourceService(t *testing.T) (SourceService, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{}
	repo := &fakeSourceRepo{sources: map[uuid.UUID]*types.Source{}}
	return NewSourceService(nil, repo, nil, bucket, testLogger(t)), bucket
}

func TestCreateFromUploadRejectsEmptyFile(t *testing.T) {
	svc, bucket := newTestSourceService(t)
	bot := &types.Bot{ID: uuid.New()}

	_, err := svc.CreateFromUpload(context.Background(), bot, "empty.pdf", "application/pdf", 0, strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for zero-byte file")
	}
	if code := errorCode(t, err); code != apierr.CodeValidation {
		t.Fatalf("code: want=%q got=%q", apierr.CodeValidation, code)
	}
	if len(bucket.uploads) != 0 {
		t.Fatal("rejected file must not be stored")
	}
}

func TestCreateFromUploadRejectsOversizeWith413(t *testing.T) {
	svc, bucket := newTestSourceService(t)
	bot := &types.Bot{ID: uuid.New()}

	_, err := svc.CreateFromUpload(context.Background(), bot, "big.pdf", "application/pdf", maxUploadBytes+1, strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error for oversize file")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if apiErr.Status != 413 || apiErr.Code != apierr.CodePayloadTooLarge {
		t.Fatalf("want 413 %s, got %d %s", apierr.CodePayloadTooLarge, apiErr.Status, apiErr.Code)
	}
	if len(bucket.uploads) != 0 {
		t.Fatal("rejected file must not be stored")
	}
}

func TestCreateFromUploadDerivesSourceType(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		mime     string
		want     string
	}{
		{name: "pdf by mime", filename: "handbook.bin", mime: "application/pdf", want: types.SourceTypePDF},
		{name: "docx by extension", filename: "guide.docx", mime: "application/octet-stream", want: types.SourceTypeDOCX},
		{name: "plain text", filename: "notes.txt", mime: "text/plain", want: types.SourceTypeText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestSourceService(t)
			bot := &types.Bot{ID: uuid.New()}

			created, err := svc.CreateFromUpload(context.Background(), bot, tc.filename, tc.mime, 42, strings.NewReader(strings.Repeat("x", 42)))
			if err != nil {
				t.Fatalf("CreateFromUpload: %v", err)
			}
			if created.Type != tc.want {
				t.Fatalf("source type: want=%q got=%q", tc.want, created.Type)
			}
			if created.URL != "" {
				t.Fatalf("uploaded source must not carry a url, got %q", created.URL)
			}
			if created.StoragePath == "" || created.Status != types.SourceStatusUploaded {
				t.Fatalf("storage_path=%q status=%q", created.StoragePath, created.Status)
			}
		})
	}
}

func TestCreateFromUploadRejectsUnsupportedType(t *testing.T) {
	svc, _ := newTestSourceService(t)
	bot := &types.Bot{ID: uuid.New()}

	_, err := svc.CreateFromUpload(context.Background(), bot, "tool.exe", "application/octet-stream", 42, strings.NewReader("MZ"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if code := errorCode(t, err); code != apierr.CodeValidation {
		t.Fatalf("code: want=%q got=%q", apierr.CodeValidation, code)
	}
}

func TestCreateFromURLCreatesHTMLSource(t *testing.T) {
	svc, _ := newTestSourceService(t)
	bot := &types.Bot{ID: uuid.New()}

	created, err := svc.CreateFromURL(context.Background(), bot, "HTTPS://Shop.Example.com/help#faq", "Help Center")
	if err != nil {
		t.Fatalf("CreateFromURL: %v", err)
	}
	if created.Type != types.SourceTypeHTML {
		t.Fatalf("source type: want=%q got=%q", types.SourceTypeHTML, created.Type)
	}
	if created.URL != "https://shop.example.com/help" {
		t.Fatalf("canonical url: got %q", created.URL)
	}
}
