package schema

import (
	"encoding/base64"
	"fmt"
)

// Image is an inline image carried by a message
type Image struct {
	// MimeType detected content type, e.g. image/jpeg
	MimeType string `json:"mime_type"`
	// Data raw image bytes
	Data []byte `json:"-"`
}

// Base64 returns the image bytes encoded as standard base64
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL accepted by vision endpoints
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MimeType, i.Base64())
}

// Attachement message attachement
type Attachement struct {
	// Images attached inline images
	Images []Image `json:"images,omitempty"`
}

// HasImages reports whether the attachement carries at least one image
func (a *Attachement) HasImages() bool {
	return a != nil && len(a.Images) > 0
}
