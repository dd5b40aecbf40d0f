package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const imgurPrefix = "imgur:"

// ImgurResponse Imgur API 响应结构，data 的形状随接口变化
type ImgurResponse struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
}

type ImgurImage struct {
	ID         string `json:"id"`
	Link       string `json:"link"`
	DeleteHash string `json:"deletehash"`
	Type       string `json:"type"`
}

// Imgur uploads image evidence anonymously with a client ID. Refs carry the
// delete hash, which is all Imgur needs to release the image.
type Imgur struct {
	clientID string
	baseURL  string
	client   *http.Client
}

func NewImgur(clientID, baseURL string, timeout time.Duration) *Imgur {
	if baseURL == "" {
		baseURL = "https://api.imgur.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Imgur{
		clientID: clientID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Accepts only images; the anonymous image endpoint rejects documents and audio.
func (im *Imgur) Accepts(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func (im *Imgur) Put(ctx context.Context, obj Object) (string, error) {
	if !im.Accepts(obj.ContentType) {
		return "", fmt.Errorf("imgur: %w: %q", ErrUnsupportedType, obj.ContentType)
	}
	// 使用 multipart/form-data + base64，与 Imgur 文档一致
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("image", base64.StdEncoding.EncodeToString(obj.Data)); err != nil {
		return "", fmt.Errorf("imgur: build request: %w", err)
	}
	if err := writer.WriteField("type", "base64"); err != nil {
		return "", fmt.Errorf("imgur: build request: %w", err)
	}
	if obj.Name != "" {
		if err := writer.WriteField("name", obj.Name); err != nil {
			return "", fmt.Errorf("imgur: build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("imgur: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, im.baseURL+"/3/image", &body)
	if err != nil {
		return "", fmt.Errorf("imgur: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out ImgurResponse
	if err := im.do(req, &out); err != nil {
		return "", err
	}
	var img ImgurImage
	if err := json.Unmarshal(out.Data, &img); err != nil {
		return "", fmt.Errorf("imgur: decode image: %w", err)
	}
	if img.DeleteHash == "" {
		return "", fmt.Errorf("imgur: upload response missing deletehash")
	}
	return imgurPrefix + img.DeleteHash, nil
}

func (im *Imgur) Delete(ctx context.Context, ref string) error {
	hash, ok := strings.CutPrefix(ref, imgurPrefix)
	if !ok || hash == "" || strings.Contains(hash, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, im.baseURL+"/3/image/"+hash, nil)
	if err != nil {
		return fmt.Errorf("imgur: create request: %w", err)
	}
	var out ImgurResponse
	return im.do(req, &out)
}

func (im *Imgur) Close() error {
	im.client.CloseIdleConnections()
	return nil
}

func (im *Imgur) do(req *http.Request, out *ImgurResponse) error {
	req.Header.Set("Authorization", "Client-ID "+im.clientID)

	resp, err := im.client.Do(req)
	if err != nil {
		return fmt.Errorf("imgur: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("imgur: read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("imgur: decode response (http %d): %w", resp.StatusCode, err)
	}
	if !out.Success || resp.StatusCode >= 300 {
		return fmt.Errorf("imgur: %s %s failed: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return nil
}
