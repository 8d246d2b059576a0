package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultSignedURLExpiry     = 15 * time.Minute
	defaultDownloadExpiry      = 5 * time.Minute
	maxDownloadSignedURLExpiry = 15 * time.Minute
)

const (
	httpMethodPut  = "PUT"
	httpMethodPost = "POST"
	httpMethodGet  = "GET"
	httpMethodHead = "HEAD"
)

var (
	errNoSigner           = errors.New("storage: signer is required")
	errInvalidOptions     = errors.New("storage: either upload or download options must be provided")
	errBothIntents        = errors.New("storage: upload and download options cannot be used together")
	errInvalidBucket      = errors.New("storage: bucket name is required")
	errInvalidObject      = errors.New("storage: object name is required")
	errMethodNotAllowed   = errors.New("storage: HTTP method not allowed for intent")
	errContentTypeMissing = errors.New("storage: content type is required for uploads")
	errContentTypeDenied  = errors.New("storage: content type not allowed")
	errMD5Required        = errors.New("storage: content MD5 is required for uploads")
	errMD5Invalid         = errors.New("storage: content MD5 must be base64 encoded")
	errExpiryTooLong      = errors.New("storage: expiry exceeds permitted maximum")
)

// Client issues signed upload and download URLs for bucket objects.
type Client struct {
	signer Signer
	scheme storage.SigningScheme
	now    func() time.Time
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithSigningScheme overrides the signing scheme. The default is V4.
func WithSigningScheme(scheme storage.SigningScheme) ClientOption {
	return func(c *Client) {
		if scheme != 0 {
			c.scheme = scheme
		}
	}
}

// WithClock swaps the clock used for expiry times, mainly for tests.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewClient builds a Client around signer.
func NewClient(signer Signer, opts ...ClientOption) (*Client, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}

	client := &Client{
		signer: signer,
		scheme: storage.SigningSchemeV4,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SignedURLOptions selects the intent of the URL. Exactly one of Upload
// or Download must be set.
type SignedURLOptions struct {
	Upload   *UploadOptions
	Download *DownloadOptions
	Query    map[string]string
}

// UploadOptions constrain what the holder of an upload URL may send.
type UploadOptions struct {
	Method              string
	ContentType         string
	ContentMD5          string
	RequireMD5          bool
	AllowedMethods      []string
	AllowedContentTypes []string
	MaxSize             int64
	ExpiresIn           time.Duration
	AdditionalHeaders   map[string]string
}

// DownloadOptions shape the response the signed URL will serve.
type DownloadOptions struct {
	Method       string
	ExpiresIn    time.Duration
	Disposition  string
	CacheControl string
	ResponseType string
}

// SignedURLResult is the issued URL plus what the caller must send with it.
type SignedURLResult struct {
	URL       string
	Method    string
	ExpiresAt time.Time
	Headers   map[string]string
}

// SignedURL issues a signed URL for the given bucket object.
func (c *Client) SignedURL(ctx context.Context, bucket, object string, opts SignedURLOptions) (SignedURLResult, error) {
	if c == nil {
		return SignedURLResult{}, errNoSigner
	}
	if ctx == nil {
		return SignedURLResult{}, errors.New("storage: context is required")
	}
	bucket = strings.TrimSpace(bucket)
	object = strings.TrimSpace(object)
	switch {
	case bucket == "":
		return SignedURLResult{}, errInvalidBucket
	case object == "":
		return SignedURLResult{}, errInvalidObject
	case opts.Upload == nil && opts.Download == nil:
		return SignedURLResult{}, errInvalidOptions
	case opts.Upload != nil && opts.Download != nil:
		return SignedURLResult{}, errBothIntents
	case c.signer.Email() == "":
		return SignedURLResult{}, errNoSigner
	}

	if opts.Upload != nil {
		return c.signUpload(ctx, bucket, object, opts.Upload, opts.Query)
	}
	return c.signDownload(ctx, bucket, object, opts.Download, opts.Query)
}

func (c *Client) baseOptions(ctx context.Context, method string, expiresAt time.Time) storage.SignedURLOptions {
	return storage.SignedURLOptions{
		GoogleAccessID: c.signer.Email(),
		Scheme:         c.scheme,
		Method:         method,
		Expires:        expiresAt,
		SignBytes: func(payload []byte) ([]byte, error) {
			return c.signer.SignBytes(ctx, payload)
		},
	}
}

func (c *Client) signUpload(ctx context.Context, bucket, object string, upload *UploadOptions, query map[string]string) (SignedURLResult, error) {
	method, err := uploadMethod(upload.Method)
	if err != nil {
		return SignedURLResult{}, err
	}

	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		return SignedURLResult{}, errContentTypeMissing
	}
	if len(upload.AllowedContentTypes) > 0 && !contentTypeAllowed(contentType, upload.AllowedContentTypes) {
		return SignedURLResult{}, errContentTypeDenied
	}

	md5 := strings.TrimSpace(upload.ContentMD5)
	if upload.RequireMD5 && md5 == "" {
		return SignedURLResult{}, errMD5Required
	}
	if md5 != "" {
		if _, err := base64.StdEncoding.DecodeString(md5); err != nil {
			return SignedURLResult{}, errMD5Invalid
		}
	}

	expiry := upload.ExpiresIn
	if expiry <= 0 {
		expiry = defaultSignedURLExpiry
	}
	expiresAt := c.now().Add(expiry)

	urlOpts := c.baseOptions(ctx, method, expiresAt)
	urlOpts.ContentType = contentType
	urlOpts.MD5 = md5
	if len(query) > 0 {
		urlOpts.QueryParameters = sortedValues(query)
	}

	// Headers echo what the uploader must send; extension headers also
	// become part of the signature.
	headers := map[string]string{"Content-Type": contentType}
	if md5 != "" {
		headers["Content-MD5"] = md5
	}

	var extHeaders []string
	if upload.MaxSize > 0 {
		lengthRange := fmt.Sprintf("0,%d", upload.MaxSize)
		extHeaders = append(extHeaders, "x-goog-content-length-range:"+lengthRange)
		headers["x-goog-content-length-range"] = lengthRange
	}
	for _, key := range sortedKeys(upload.AdditionalHeaders) {
		value := strings.TrimSpace(upload.AdditionalHeaders[key])
		if value == "" {
			continue
		}
		extHeaders = append(extHeaders, strings.ToLower(strings.TrimSpace(key))+":"+value)
		headers[key] = value
	}
	urlOpts.Headers = extHeaders

	signed, err := storage.SignedURL(bucket, object, &urlOpts)
	if err != nil {
		return SignedURLResult{}, fmt.Errorf("storage: sign upload url: %w", err)
	}
	return SignedURLResult{
		URL:       signed,
		Method:    method,
		ExpiresAt: expiresAt,
		Headers:   headers,
	}, nil
}

func (c *Client) signDownload(ctx context.Context, bucket, object string, download *DownloadOptions, query map[string]string) (SignedURLResult, error) {
	method := strings.ToUpper(strings.TrimSpace(download.Method))
	if method == "" {
		method = httpMethodGet
	}
	if method != httpMethodGet && method != httpMethodHead {
		return SignedURLResult{}, errMethodNotAllowed
	}

	expiry := download.ExpiresIn
	if expiry <= 0 {
		expiry = defaultDownloadExpiry
	}
	if expiry > maxDownloadSignedURLExpiry {
		return SignedURLResult{}, errExpiryTooLong
	}
	expiresAt := c.now().Add(expiry)

	urlOpts := c.baseOptions(ctx, method, expiresAt)

	params := map[string]string{}
	if download.Disposition != "" {
		params["response-content-disposition"] = download.Disposition
	}
	if download.CacheControl != "" {
		params["response-cache-control"] = download.CacheControl
	}
	if download.ResponseType != "" {
		params["response-content-type"] = download.ResponseType
	}
	for key, value := range query {
		if _, taken := params[key]; !taken {
			params[key] = value
		}
	}
	if len(params) > 0 {
		urlOpts.QueryParameters = sortedValues(params)
	}

	signed, err := storage.SignedURL(bucket, object, &urlOpts)
	if err != nil {
		return SignedURLResult{}, fmt.Errorf("storage: sign download url: %w", err)
	}
	return SignedURLResult{
		URL:       signed,
		Method:    method,
		ExpiresAt: expiresAt,
	}, nil
}

func uploadMethod(method string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case "":
		return httpMethodPut, nil
	case httpMethodPut, httpMethodPost:
		return method, nil
	default:
		return "", errMethodNotAllowed
	}
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		switch {
		case candidate == "":
		case candidate == "*":
			return true
		case strings.HasSuffix(candidate, "/*"):
			if strings.HasPrefix(normalized, strings.TrimSuffix(candidate, "/*")) {
				return true
			}
		case normalized == candidate:
			return true
		}
	}
	return false
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues(values map[string]string) url.Values {
	out := make(url.Values, len(values))
	for _, key := range sortedKeys(values) {
		out.Add(key, values[key])
	}
	return out
}
