package server

import (
	"bytes"
	"encoding/json"
	"image"
	stdcolor "image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mosaicme/mosaicme/config"
	"github.com/mosaicme/mosaicme/export"
	"github.com/mosaicme/mosaicme/mosaic"
	"github.com/mosaicme/mosaicme/palette"
	"github.com/mosaicme/mosaicme/session"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	registry, err := palette.NewRegistry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	cfg := config.Default()
	return New(
		cfg,
		hclog.NewNullLogger(),
		registry,
		mosaic.NewGenerator(),
		export.NewRenderer(""),
		session.NewStore(time.Hour),
	)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, stdcolor.RGBA{R: 201, G: 26, B: 9, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartUpload builds an upload request body with an explicit part
// content type, the way browsers submit image files
func multipartUpload(t *testing.T, filename, contentType string, fileData []byte, size, pieceType string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("failed to create form part: %v", err)
	}
	if _, err := part.Write(fileData); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}

	if err := w.WriteField("baseplateSize", size); err != nil {
		t.Fatalf("failed to write size field: %v", err)
	}
	if err := w.WriteField("pieceType", pieceType); err != nil {
		t.Fatalf("failed to write pieceType field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return &body, w.FormDataContentType()
}

func decodeError(t *testing.T, body *bytes.Buffer) (string, string) {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Success {
		t.Fatal("error response claims success")
	}
	return resp.Error.Code, resp.Error.Message
}

func TestHealth(t *testing.T) {
	h := testServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" || resp["version"] != Version {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestListPalettes(t *testing.T) {
	h := testServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/palettes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Palettes []palette.Info `json:"palettes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || len(resp.Data.Palettes) != 2 {
		t.Errorf("unexpected palettes response: %+v", resp)
	}
}

func TestPaletteColors(t *testing.T) {
	h := testServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/palettes/round/colors", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data struct {
			Palette palette.Definition `json:"palette"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Palette.Type != "round" || len(resp.Data.Palette.Colors) == 0 {
		t.Errorf("unexpected palette payload: %+v", resp.Data.Palette)
	}
}

func TestPaletteColorsNotFound(t *testing.T) {
	h := testServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/palettes/hexagonal/colors", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code, _ := decodeError(t, rec.Body); code != "PALETTE_NOT_FOUND" {
		t.Errorf("error code = %q, want PALETTE_NOT_FOUND", code)
	}
}

func TestUpload(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()

	body, contentType := multipartUpload(t, "photo.png", "image/png", testPNG(t), "32", "square")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			SessionID string `json:"sessionId"`
			Mosaic    struct {
				PreviewURL   string           `json:"previewUrl"`
				Grid         [][]mosaic.Cell  `json:"grid"`
				ShoppingList []map[string]any `json:"shoppingList"`
				Metadata     mosaic.Metadata  `json:"metadata"`
			} `json:"mosaic"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.SessionID == "" {
		t.Error("missing session id")
	}
	if len(resp.Data.Mosaic.Grid) != 32 {
		t.Errorf("grid has %d rows, want 32", len(resp.Data.Mosaic.Grid))
	}
	if resp.Data.Mosaic.Metadata.TotalPieces != 1024 {
		t.Errorf("totalPieces = %d, want 1024", resp.Data.Mosaic.Metadata.TotalPieces)
	}
	if !strings.HasPrefix(resp.Data.Mosaic.PreviewURL, "data:image/png;base64,") {
		t.Errorf("previewUrl is not a png data url: %.40q", resp.Data.Mosaic.PreviewURL)
	}

	// The stored session is retrievable afterwards.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mosaic/"+resp.Data.SessionID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("mosaic fetch status = %d, want 200", rec.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	h := testServer(t).Handler()
	imageData := testPNG(t)

	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		size        string
		pieceType   string
		wantCode    string
	}{
		{
			name: "bad baseplate size", filename: "a.png", contentType: "image/png",
			data: imageData, size: "50", pieceType: "square",
			wantCode: "INVALID_BASEPLATE_SIZE",
		},
		{
			name: "size not a number", filename: "a.png", contentType: "image/png",
			data: imageData, size: "big", pieceType: "square",
			wantCode: "INVALID_BASEPLATE_SIZE",
		},
		{
			name: "unknown piece type", filename: "a.png", contentType: "image/png",
			data: imageData, size: "32", pieceType: "hexagonal",
			wantCode: "INVALID_PIECE_TYPE",
		},
		{
			name: "bad extension", filename: "a.txt", contentType: "image/png",
			data: imageData, size: "32", pieceType: "square",
			wantCode: "INVALID_FILE_TYPE",
		},
		{
			name: "non-image content type", filename: "a.png", contentType: "text/plain",
			data: imageData, size: "32", pieceType: "square",
			wantCode: "INVALID_FILE_TYPE",
		},
		{
			name: "corrupt image data", filename: "a.png", contentType: "image/png",
			data: []byte("not an image"), size: "32", pieceType: "square",
			wantCode: "INVALID_FILE_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartUpload(t, tt.filename, tt.contentType, tt.data, tt.size, tt.pieceType)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
			req.Header.Set("Content-Type", contentType)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if code, _ := decodeError(t, rec.Body); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestExport(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()

	// Seed a session directly through the store.
	pal, _ := srv.registry.Get("square")
	result, err := srv.gen.Generate(testPNG(t), 32, pal)
	if err != nil {
		t.Fatalf("failed to generate fixture mosaic: %v", err)
	}
	srv.sessions.Put(result)

	tests := []struct {
		exportType string
		mediaType  string
	}{
		{exportType: "mosaic-png", mediaType: "image/png"},
		{exportType: "instructions-png", mediaType: "image/png"},
		{exportType: "shopping-csv", mediaType: "text/csv"},
		{exportType: "pickabrick-csv", mediaType: "text/csv"},
	}

	for _, tt := range tests {
		t.Run(tt.exportType, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
				"/api/v1/export/"+result.SessionID+"/"+tt.exportType, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tt.mediaType {
				t.Errorf("content type = %q, want %q", got, tt.mediaType)
			}
			if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
				t.Errorf("content disposition = %q, want attachment", got)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty export body")
			}
		})
	}
}

func TestExportSessionNotFound(t *testing.T) {
	h := testServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/export/ghost/mosaic-png", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code, _ := decodeError(t, rec.Body); code != "SESSION_NOT_FOUND" {
		t.Errorf("error code = %q, want SESSION_NOT_FOUND", code)
	}
}

func TestExportInvalidType(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()

	pal, _ := srv.registry.Get("square")
	result, err := srv.gen.Generate(testPNG(t), 32, pal)
	if err != nil {
		t.Fatalf("failed to generate fixture mosaic: %v", err)
	}
	srv.sessions.Put(result)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/export/"+result.SessionID+"/mosaic-bmp", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code, _ := decodeError(t, rec.Body); code != "INVALID_EXPORT_TYPE" {
		t.Errorf("error code = %q, want INVALID_EXPORT_TYPE", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := testServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/palettes", nil)
	req.Header.Set("Origin", "http://localhost:5173")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	h := testServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/palettes", nil)
	req.Header.Set("Origin", "https://evil.example")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty", got)
	}
}
