// Package cloudinary uploads local media files through Cloudinary's
// unsigned-preset endpoint and returns stable remote references. Uploads are
// safely retriable; no deduplication is assumed across attempts.
package cloudinary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldsafe/fieldsync/pkg/config"
	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// MediaType selects the Cloudinary resource type for an upload.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// UploadResult is the remote reference returned for an uploaded file.
type UploadResult struct {
	URL      string  `json:"url"`
	PublicID string  `json:"publicId"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Bytes    int64   `json:"bytes,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type uploadResponse struct {
	SecureURL string  `json:"secure_url"`
	PublicID  string  `json:"public_id"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Bytes     int64   `json:"bytes"`
	Duration  float64 `json:"duration"`
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	cloudName    string
	uploadPreset string
	uploadFolder string
	logg         *logger.Logger
}

// NewClient builds an upload client for the configured cloud.
func NewClient(cfg config.CloudinaryConfig, callTimeout time.Duration, logg *logger.Logger) (*Client, error) {
	if cfg.CloudName == "" {
		return nil, errors.New("cloudinary cloud name is required")
	}
	if cfg.UploadPreset == "" {
		return nil, errors.New("cloudinary upload preset is required")
	}
	if callTimeout <= 0 {
		callTimeout = 20 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: callTimeout},
		baseURL:      defaultBaseURL,
		cloudName:    cfg.CloudName,
		uploadPreset: cfg.UploadPreset,
		uploadFolder: cfg.UploadFolder,
		logg:         logg,
	}, nil
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Upload sends the local file and returns its remote reference. Audio files
// go through the "auto" resource type so Cloudinary classifies them itself.
func (c *Client) Upload(ctx context.Context, localPath string, mediaType MediaType) (*UploadResult, error) {
	resourceType, err := resourceTypeFor(mediaType)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "opening local media file")
	}
	defer closeQuietly(ctx, c.logg, file)

	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)

	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(localPath))
		if err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if err := form.WriteField("upload_preset", c.uploadPreset); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if c.uploadFolder != "" {
			if err := form.WriteField("folder", c.uploadFolder); err != nil {
				pipeWriter.CloseWithError(err)
				return
			}
		}
		pipeWriter.CloseWithError(form.Close())
	}()

	endpoint := fmt.Sprintf("%s/%s/%s/upload", c.baseURL, c.cloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pipeReader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "media upload failed")
	}
	defer closeQuietly(ctx, c.logg, resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("cloudinary upload failed: %d %s", resp.StatusCode, string(body))
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			// Hard reject of the file itself. Rate limits, auth hiccups
			// and timeouts stay retriable.
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "media rejected")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "media upload failed")
		}
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding upload response")
	}
	if decoded.SecureURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upload response missing secure_url")
	}

	return &UploadResult{
		URL:      decoded.SecureURL,
		PublicID: decoded.PublicID,
		Width:    decoded.Width,
		Height:   decoded.Height,
		Bytes:    decoded.Bytes,
		Duration: decoded.Duration,
	}, nil
}

func resourceTypeFor(mediaType MediaType) (string, error) {
	switch mediaType {
	case MediaImage:
		return "image", nil
	case MediaVideo:
		return "video", nil
	case MediaAudio:
		return "auto", nil
	default:
		return "", pkgerrors.NewNonRetryable(fmt.Errorf("unsupported media type %q", mediaType))
	}
}

func closeQuietly(ctx context.Context, logg *logger.Logger, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil && logg != nil {
		logg.Warn(ctx, "failed to close media stream")
	}
}
