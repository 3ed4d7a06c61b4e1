package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// cleanServer answers every request with a white image of the request size
func cleanServer(t *testing.T, maxBytes int, requests *atomic.Int32, mimes chan<- string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization header = %q", got)
		}

		var req inpaintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if mimes != nil {
			mimes <- req.MimeType
		}

		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if maxBytes > 0 && len(data) > maxBytes {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out := image.NewRGBA(img.Bounds())
		draw.Draw(out, out.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
		var buf bytes.Buffer
		png.Encode(&buf, out)

		json.NewEncoder(w).Encode(inpaintResponse{Image: base64.StdEncoding.EncodeToString(buf.Bytes())})
	}))
}

// noisy returns an image that compresses badly so size limits kick in
func noisy(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(1)
	for i := range img.Pix {
		seed = seed*1664525 + 1013904223
		img.Pix[i] = byte(seed >> 24)
	}
	return img
}

func TestHTTPInpainter(t *testing.T) {
	var requests atomic.Int32
	srv := cleanServer(t, 0, &requests, nil)
	defer srv.Close()

	in := NewHTTPInpainter(srv.URL, "secret")
	out, err := in.Inpaint(context.Background(), page(32, 16))
	if err != nil {
		t.Fatalf("Inpaint failed: %v", err)
	}
	if out.Bounds().Size() != image.Pt(32, 16) {
		t.Errorf("Unexpected result size %v", out.Bounds())
	}
	if requests.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", requests.Load())
	}
}

func TestHTTPInpainterShrinksOn413(t *testing.T) {
	var requests atomic.Int32
	mimes := make(chan string, 8)
	patch := noisy(64, 64)

	// Accept anything smaller than the raw PNG
	var first bytes.Buffer
	png.Encode(&first, patch)
	srv := cleanServer(t, first.Len()-1, &requests, mimes)
	defer srv.Close()

	in := NewHTTPInpainter(srv.URL, "secret")
	in.MaxRequestBytes = 0

	out, err := in.Inpaint(context.Background(), patch)
	if err != nil {
		t.Fatalf("Inpaint failed: %v", err)
	}
	if requests.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", requests.Load())
	}
	if m := <-mimes; m != "image/png" {
		t.Errorf("First attempt should be PNG, got %s", m)
	}
	if m := <-mimes; m != "image/jpeg" {
		t.Errorf("Retry should be JPEG, got %s", m)
	}
	if out.Bounds().Dx() != 48 {
		t.Errorf("Expected the retry to be shrunk to 48px, got %v", out.Bounds())
	}
}

func TestHTTPInpainterGivesUp(t *testing.T) {
	var requests atomic.Int32
	srv := cleanServer(t, 1, &requests, nil)
	defer srv.Close()

	in := NewHTTPInpainter(srv.URL, "secret")
	in.MaxShrinkAttempts = 2

	_, err := in.Inpaint(context.Background(), page(16, 16))
	if !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("Expected ErrRequestTooLarge, got %v", err)
	}
	if requests.Load() != 3 {
		t.Errorf("Expected 1 + 2 attempts, got %d", requests.Load())
	}
}

func TestHTTPInpainterLocalSizeLimit(t *testing.T) {
	var requests atomic.Int32
	srv := cleanServer(t, 0, &requests, nil)
	defer srv.Close()

	in := NewHTTPInpainter(srv.URL, "secret")
	in.MaxRequestBytes = 1
	in.MaxShrinkAttempts = 1

	_, err := in.Inpaint(context.Background(), noisy(32, 32))
	if !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("Expected ErrRequestTooLarge, got %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("Oversized payloads must not be sent, got %d requests", requests.Load())
	}
}

func TestHTTPInpainterBackendError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"error field", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(inpaintResponse{Error: "quota exceeded"})
		}},
		{"empty image", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPInpainter(srv.URL, "").Inpaint(context.Background(), page(4, 4))
			if err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestHTTPInpainterDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		png.Encode(&buf, page(3, 2))
		json.NewEncoder(w).Encode(inpaintResponse{
			Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}))
	defer srv.Close()

	out, err := NewHTTPInpainter(srv.URL, "").Inpaint(context.Background(), page(3, 2))
	if err != nil {
		t.Fatalf("Inpaint failed: %v", err)
	}
	if out.Bounds().Size() != image.Pt(3, 2) {
		t.Errorf("Unexpected size %v", out.Bounds())
	}
}

func TestHTTPInpainterLimitCountsRequestBody(t *testing.T) {
	var requests atomic.Int32
	srv := cleanServer(t, 0, &requests, nil)
	defer srv.Close()

	patch := noisy(32, 32)
	var raw bytes.Buffer
	png.Encode(&raw, patch)

	// The raw PNG fits, its base64 JSON request does not
	in := NewHTTPInpainter(srv.URL, "secret")
	in.MaxRequestBytes = raw.Len() + 16
	in.MaxShrinkAttempts = 0

	_, err := in.Inpaint(context.Background(), patch)
	if !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("Expected ErrRequestTooLarge, got %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("Request above the limit was sent, %d requests", requests.Load())
	}
}
