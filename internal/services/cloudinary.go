package services

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"growjournal/internal/config"

	"github.com/google/uuid"
)

// UploadedImage is what the host returns for a stored asset.
type UploadedImage struct {
	PublicID string `json:"public_id"`
	URL      string `json:"secure_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
}

// ImageHost stores and destroys image assets.
type ImageHost interface {
	Upload(ctx context.Context, r io.Reader, filename string) (*UploadedImage, error)
	Destroy(ctx context.Context, publicID string) error
}

// UploadSignature lets a browser upload straight to Cloudinary.
type UploadSignature struct {
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

type cloudinaryError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CloudinaryClient talks to the Cloudinary upload API.
type CloudinaryClient struct {
	cfg     config.CloudinaryConfig
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewCloudinaryClient(cfg config.CloudinaryConfig) *CloudinaryClient {
	return &CloudinaryClient{
		cfg:     cfg,
		baseURL: "https://api.cloudinary.com/v1_1/" + cfg.CloudName,
		client:  &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
}

// Signature signs request params: sorted key=value pairs joined by "&", followed by the
// secret, SHA-1 hex encoded. Empty values are skipped.
func Signature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func (c *CloudinaryClient) SignUpload() UploadSignature {
	ts := c.now().Unix()
	return UploadSignature{
		Timestamp: ts,
		Signature: Signature(map[string]string{
			"folder":    c.cfg.Folder,
			"timestamp": strconv.FormatInt(ts, 10),
		}, c.cfg.APISecret),
		APIKey:    c.cfg.APIKey,
		CloudName: c.cfg.CloudName,
		Folder:    c.cfg.Folder,
	}
}

func (c *CloudinaryClient) signedFields(params map[string]string) map[string]string {
	params["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
	params["signature"] = Signature(params, c.cfg.APISecret)
	params["api_key"] = c.cfg.APIKey
	return params
}

func (c *CloudinaryClient) post(ctx context.Context, endpoint string, body *bytes.Buffer, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloudinary request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ce cloudinaryError
		if json.Unmarshal(data, &ce) == nil && ce.Error.Message != "" {
			return fmt.Errorf("cloudinary: %s (status %d)", ce.Error.Message, resp.StatusCode)
		}
		return fmt.Errorf("cloudinary: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *CloudinaryClient) Upload(ctx context.Context, r io.Reader, filename string) (*UploadedImage, error) {
	fields := c.signedFields(map[string]string{
		"folder":    c.cfg.Folder,
		"public_id": uuid.NewString(),
	})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var out UploadedImage
	if err := c.post(ctx, "/image/upload", &body, writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *CloudinaryClient) Destroy(ctx context.Context, publicID string) error {
	fields := c.signedFields(map[string]string{"public_id": publicID})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := c.post(ctx, "/image/destroy", &body, writer.FormDataContentType(), &out); err != nil {
		return err
	}
	if out.Result != "ok" && out.Result != "not found" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, out.Result)
	}
	return nil
}
