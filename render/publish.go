package render

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Vizzuality/HLS-data-project/util"
	"google.golang.org/api/option"
)

// ObjectStore receives rendered files
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) error
	Close() error
}

// Location is a gs://bucket/prefix destination
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses a gs://bucket[/prefix] URL
func ParseLocation(value string) (Location, error) {
	rest := strings.TrimPrefix(value, "gs://")
	if rest == value || rest == "" || strings.HasPrefix(rest, "/") {
		return Location{}, util.NewError(util.Configuration, "invalid bucket URL %q, expected gs://bucket/prefix", value)
	}
	parts := strings.SplitN(rest, "/", 2)
	loc := Location{Bucket: parts[0]}
	if len(parts) == 2 {
		loc.Prefix = strings.Trim(parts[1], "/")
	}
	return loc, nil
}

// Object returns the object name of a file published under the location
func (l Location) Object(file string) string {
	if l.Prefix == "" {
		return filepath.Base(file)
	}
	return l.Prefix + "/" + filepath.Base(file)
}

// URL returns the gs:// URL of an object in the location's bucket
func (l Location) URL(object string) string {
	return "gs://" + l.Bucket + "/" + object
}

// GCSStore writes objects to one Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore authenticates with a service account key file; an empty file
// uses application default credentials
func NewGCSStore(ctx context.Context, credentialsFile, bucket string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, util.WrapError(util.Authentication, fmt.Errorf("storage.NewClient: %w", err))
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put implements ObjectStore
func (s *GCSStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Close releases the client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Publish copies files to the location and returns their gs:// URLs
func Publish(ctx context.Context, store ObjectStore, loc Location, files []string, lc util.LogContext) ([]string, error) {
	var urls []string
	for _, file := range files {
		f, err := os.Open(filepath.Clean(file))
		if err != nil {
			return urls, util.WrapError(util.Configuration, err)
		}
		object := loc.Object(file)
		contentType := mime.TypeByExtension(filepath.Ext(file))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		err = store.Put(ctx, object, contentType, f)
		f.Close()
		if err != nil {
			return urls, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Failed to publish %s.", file), err))
		}
		urls = append(urls, loc.URL(object))
		util.LogAudit(lc, util.LogAuditInput{Actor: "render/Publish", Action: "upload", Actee: loc.URL(object), Message: "Published " + file, Severity: util.INFO})
	}
	return urls, nil
}
