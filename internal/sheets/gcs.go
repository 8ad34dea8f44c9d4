package sheets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GCSUploader copies the workbook file to a Cloud Storage object.
type GCSUploader struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSUploader creates a storage client for bucket. When credentialsFile
// is empty Application Default Credentials are used. An empty object name
// uses the base name of the uploaded file.
func NewGCSUploader(ctx context.Context, bucket, object, credentialsFile string, opts ...option.ClientOption) (*GCSUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs uploader: bucket is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket, object: object}, nil
}

// Object returns the object name used for the file at path.
func (u *GCSUploader) Object(path string) string {
	if u.object != "" {
		return u.object
	}
	return filepath.Base(path)
}

// Upload writes the file at path to the bucket, replacing the object.
func (u *GCSUploader) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return syncErr("upload", false, fmt.Errorf("open %q: %w", path, err))
	}
	defer f.Close()

	w := u.client.Bucket(u.bucket).Object(u.Object(path)).NewWriter(ctx)
	w.ContentType = xlsxContentType

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return syncErr("upload", true, fmt.Errorf("copy to gs://%s/%s: %w", u.bucket, u.Object(path), err))
	}
	if err := w.Close(); err != nil {
		return syncErr("upload", true, fmt.Errorf("finalize gs://%s/%s: %w", u.bucket, u.Object(path), err))
	}
	return nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
