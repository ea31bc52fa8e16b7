package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"mediastudio/internal/domain"
	"mediastudio/internal/providers/failure"
)

const cloudinaryService = "cloudinary"

// CloudinaryStore uploads objects to Cloudinary. IDs have the form
// "<resource type>:<public id>" because deletion needs both.
type CloudinaryStore struct {
	cld        *cloudinary.Cloudinary
	httpClient *http.Client
}

type CloudinaryOptions struct {
	URL        string
	HTTPClient *http.Client
}

func NewCloudinaryStore(opts CloudinaryOptions) (*CloudinaryStore, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("storage: cloudinary url is required")
	}
	cld, err := cloudinary.NewFromURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("storage: cloudinary config: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &CloudinaryStore{cld: cld, httpClient: client}, nil
}

func (c *CloudinaryStore) Upload(ctx context.Context, data []byte, hint Hint) (domain.StoredObject, error) {
	const op = "upload"
	name := objectName(Hint{Name: hint.Name, ContentType: hint.ContentType})
	publicID := strings.TrimSuffix(name, path.Ext(name))
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       strings.Trim(hint.Folder, "/"),
		PublicID:     publicID,
		ResourceType: resourceType(hint.ContentType),
	})
	if err != nil {
		return domain.StoredObject{}, failure.FromTransport(cloudinaryService, op, err)
	}
	if resp.Error.Message != "" {
		return domain.StoredObject{}, classifyCloudinary(op, resp.Error.Message)
	}
	if resp.SecureURL == "" || resp.PublicID == "" {
		return domain.StoredObject{}, failure.New(failure.KindUpstream, cloudinaryService, op, "upload returned no url")
	}
	return domain.StoredObject{ID: resp.ResourceType + ":" + resp.PublicID, URL: resp.SecureURL}, nil
}

func (c *CloudinaryStore) Delete(ctx context.Context, id string) error {
	const op = "destroy"
	kind, publicID, ok := strings.Cut(id, ":")
	if !ok || publicID == "" {
		return failure.New(failure.KindInvalidInput, cloudinaryService, op, fmt.Sprintf("malformed id %q", id))
	}
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: kind})
	if err != nil {
		return failure.FromTransport(cloudinaryService, op, err)
	}
	if resp.Error.Message != "" {
		return classifyCloudinary(op, resp.Error.Message)
	}
	// "not found" means the object is already gone
	if resp.Result != "ok" && resp.Result != "not found" {
		return failure.New(failure.KindUpstream, cloudinaryService, op, "destroy result "+resp.Result)
	}
	return nil
}

func (c *CloudinaryStore) Open(ctx context.Context, obj domain.StoredObject) (io.ReadCloser, error) {
	const op = "download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, obj.URL, nil)
	if err != nil {
		return nil, failure.Wrap(failure.KindInvalidInput, cloudinaryService, op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failure.FromTransport(cloudinaryService, op, err)
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		return nil, failure.FromStatus(cloudinaryService, op, resp.StatusCode, string(data))
	}
	return resp.Body, nil
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "audio/"), strings.HasPrefix(contentType, "video/"):
		// Cloudinary files audio under the video resource type
		return "video"
	default:
		return "raw"
	}
}

func classifyCloudinary(op, message string) error {
	lower := strings.ToLower(message)
	kind := failure.KindInvalidInput
	switch {
	case strings.Contains(lower, "rate limit"):
		kind = failure.KindRateLimited
	case strings.Contains(lower, "api_key"), strings.Contains(lower, "signature"), strings.Contains(lower, "api key"):
		kind = failure.KindUnauthorized
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "server error"):
		kind = failure.KindUpstream
	}
	return failure.New(kind, cloudinaryService, op, message)
}

var _ Store = (*CloudinaryStore)(nil)
