package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/ivlev/slidefix/internal/renderer"
)

// DefaultPrompt asks the backend to drop text and keep the background
const DefaultPrompt = "Remove all text from this image. Reconstruct the background behind it so no trace of the text remains. Keep every other detail unchanged."

// ErrRequestTooLarge is returned when a patch is still rejected as too large
// after every shrink attempt.
var ErrRequestTooLarge = errors.New("inpaint request too large")

// HTTPInpainter sends patches to a text-removal service as JSON:
//
//	request:  {"image": "<base64>", "mime_type": "image/png", "prompt": "..."}
//	response: {"image": "<base64>"}
type HTTPInpainter struct {
	Endpoint          string
	APIKey            string
	Prompt            string
	Client            *http.Client
	MaxRequestBytes   int     // request body size that triggers shrinking, 0 = no limit
	MaxShrinkAttempts int     // how many times a too-large patch is shrunk
	ShrinkFactor      float64 // scale applied per attempt
	JPEGQuality       int
}

// NewHTTPInpainter creates a client with default limits
func NewHTTPInpainter(endpoint, apiKey string) *HTTPInpainter {
	return &HTTPInpainter{
		Endpoint:          endpoint,
		APIKey:            apiKey,
		Prompt:            DefaultPrompt,
		Client:            &http.Client{Timeout: 2 * time.Minute},
		MaxRequestBytes:   4 << 20,
		MaxShrinkAttempts: 3,
		ShrinkFactor:      0.75,
		JPEGQuality:       85,
	}
}

type inpaintRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
	Prompt   string `json:"prompt,omitempty"`
}

type inpaintResponse struct {
	Image string `json:"image"`
	Error string `json:"error,omitempty"`
}

// errTooLarge marks a 413 answer so Inpaint can shrink and retry
var errTooLarge = errors.New("payload too large")

// Inpaint sends the patch, shrinking and re-encoding it while the request is
// too large, at most MaxShrinkAttempts times.
func (h *HTTPInpainter) Inpaint(ctx context.Context, patch image.Image) (image.Image, error) {
	for attempt := 0; attempt <= h.MaxShrinkAttempts; attempt++ {
		data, mime, err := h.encode(patch, attempt)
		if err != nil {
			return nil, err
		}

		// The limit applies to what goes over the wire: base64 inside JSON
		body, err := h.requestBody(data, mime)
		if err != nil {
			return nil, err
		}

		if h.MaxRequestBytes > 0 && len(body) > h.MaxRequestBytes {
			log.Printf("[!] Patch %dx%d makes a %d byte request, shrinking (attempt %d)",
				patch.Bounds().Dx(), patch.Bounds().Dy(), len(body), attempt+1)
			continue
		}

		img, err := h.send(ctx, body)
		if errors.Is(err, errTooLarge) {
			log.Printf("[!] Backend rejected %d bytes as too large, shrinking (attempt %d)", len(body), attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return img, nil
	}

	return nil, fmt.Errorf("%w after %d shrink attempts", ErrRequestTooLarge, h.MaxShrinkAttempts)
}

// encode returns PNG for the first attempt and downscaled JPEG afterwards
func (h *HTTPInpainter) encode(patch image.Image, attempt int) ([]byte, string, error) {
	var buf bytes.Buffer
	if attempt == 0 {
		if err := png.Encode(&buf, patch); err != nil {
			return nil, "", fmt.Errorf("encode patch: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}

	factor := 1.0
	for i := 0; i < attempt; i++ {
		factor *= h.ShrinkFactor
	}
	small := renderer.Scale(patch, factor)

	quality := h.JPEGQuality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("encode patch: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func (h *HTTPInpainter) requestBody(data []byte, mime string) ([]byte, error) {
	body, err := json.Marshal(inpaintRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		MimeType: mime,
		Prompt:   h.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return body, nil
}

func (h *HTTPInpainter) send(ctx context.Context, body []byte) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inpaint request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return nil, errTooLarge
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("inpaint backend returned %s: %s", resp.Status, snippet(raw))
	}

	var out inpaintResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("inpaint backend error: %s", out.Error)
	}
	if out.Image == "" {
		return nil, fmt.Errorf("inpaint backend returned no image")
	}

	// Some backends answer with a data URL
	b64 := out.Image
	if i := strings.Index(b64, ","); strings.HasPrefix(b64, "data:") && i >= 0 {
		b64 = b64[i+1:]
	}

	imgData, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
