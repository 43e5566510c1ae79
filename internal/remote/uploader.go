package remote

import (
	"context"
	"fmt"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/pkg/cloudinary"
)

type cloudinaryUploader struct {
	client *cloudinary.Client
}

// NewCloudinaryUploader adapts the cloudinary client to the Uploader surface.
func NewCloudinaryUploader(client *cloudinary.Client) (Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("cloudinary client is required")
	}
	return &cloudinaryUploader{client: client}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, localURI string, mediaType action.MediaType) (*action.MediaRef, error) {
	result, err := u.client.Upload(ctx, localURI, cloudinary.MediaType(mediaType))
	if err != nil {
		return nil, err
	}
	return &action.MediaRef{
		URL:      result.URL,
		PublicID: result.PublicID,
		Width:    result.Width,
		Height:   result.Height,
		Bytes:    result.Bytes,
		Duration: result.Duration,
	}, nil
}
