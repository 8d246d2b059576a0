package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ImageState discriminates the three forms an attachment can take during
// the wizard lifecycle.
type ImageState string

const (
	// ImageUnsent is a raw binary held client-side, not yet transmitted.
	ImageUnsent ImageState = "unsent"
	// ImageEmbedded is an inline data-URL raster (canvas exports).
	ImageEmbedded ImageState = "embedded"
	// ImageRemote is an attachment already resolved to a retrievable URL
	// by a previous submission echo.
	ImageRemote ImageState = "remote"
)

// ImageRef is the tagged union carrying one attachment. Exactly one of
// Bytes, DataURL or URL is meaningful, selected by State.
type ImageRef struct {
	State       ImageState `json:"state"`
	FileName    string     `json:"fileName,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Bytes       []byte     `json:"-"`
	DataURL     string     `json:"dataUrl,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// UnsentImage wraps raw bytes as an untransmitted attachment.
func UnsentImage(fileName, contentType string, data []byte) ImageRef {
	return ImageRef{
		State:       ImageUnsent,
		FileName:    strings.TrimSpace(fileName),
		ContentType: strings.TrimSpace(contentType),
		Bytes:       data,
	}
}

// EmbeddedImage wraps an inline data-URL raster.
func EmbeddedImage(dataURL string) ImageRef {
	return ImageRef{State: ImageEmbedded, DataURL: strings.TrimSpace(dataURL)}
}

// RemoteImage wraps an already-uploaded attachment URL.
func RemoteImage(url string) ImageRef {
	return ImageRef{State: ImageRemote, URL: strings.TrimSpace(url)}
}

// IsZero reports whether the reference carries no attachment at all.
func (r ImageRef) IsZero() bool {
	return len(r.Bytes) == 0 && r.DataURL == "" && r.URL == ""
}

// ErrNoPayload indicates an image reference holds no transmittable bytes.
var ErrNoPayload = errors.New("image: no payload to resolve")

// ResolvedImage is the normalized form of an attachment: either inline
// bytes ready for transmission, or a remote URL that needs no upload.
type ResolvedImage struct {
	FileName    string
	ContentType string
	Bytes       []byte
	URL         string
}

// Remote reports whether the resolved image is carried by URL only.
func (ri ResolvedImage) Remote() bool { return ri.URL != "" }

// Resolve normalizes the union to a displayable/transmittable form. Unsent
// bytes pass through, embedded data-URLs are decoded, remote references
// keep their URL. Decoding failures surface so callers can drop the
// attachment without aborting the rest of the payload.
func (r ImageRef) Resolve() (ResolvedImage, error) {
	switch r.State {
	case ImageUnsent:
		if len(r.Bytes) == 0 {
			return ResolvedImage{}, ErrNoPayload
		}
		contentType := r.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return ResolvedImage{
			FileName:    r.FileName,
			ContentType: contentType,
			Bytes:       r.Bytes,
		}, nil
	case ImageEmbedded:
		contentType, data, err := DecodeDataURL(r.DataURL)
		if err != nil {
			return ResolvedImage{}, err
		}
		return ResolvedImage{
			FileName:    r.FileName,
			ContentType: contentType,
			Bytes:       data,
		}, nil
	case ImageRemote:
		if r.URL == "" {
			return ResolvedImage{}, ErrNoPayload
		}
		return ResolvedImage{URL: r.URL}, nil
	default:
		return ResolvedImage{}, fmt.Errorf("image: unknown state %q", r.State)
	}
}

// DecodeDataURL splits a data: URL into its media type and decoded bytes.
// Only base64 payloads are accepted; canvas exports always produce them.
func DecodeDataURL(raw string) (string, []byte, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return "", nil, fmt.Errorf("image: not a data url")
	}
	meta, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("image: malformed data url")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("image: data url is not base64 encoded")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("image: decode data url: %w", err)
	}
	return contentType, data, nil
}
