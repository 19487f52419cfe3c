package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mosaicme/mosaicme/mosaic"
)

// mosaicPayload is a mosaic result plus the preview data URL the
// frontend renders immediately after upload
type mosaicPayload struct {
	*mosaic.Result
	PreviewURL string `json:"previewUrl"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%q,"version":%q}`,
		time.Now().UTC().Format(time.RFC3339), Version)
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"palettes": s.registry.List(),
	})
}

func (s *Server) handlePaletteColors(w http.ResponseWriter, r *http.Request) {
	pieceType := r.PathValue("type")
	pal, ok := s.registry.Get(pieceType)
	if !ok {
		s.respondError(w, http.StatusNotFound, "PALETTE_NOT_FOUND",
			fmt.Sprintf("Palette type %q not found", pieceType))
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"palette": pal.Definition(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"Request must be multipart form data within the upload size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing image file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		s.respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE",
			"File must be an image (JPEG, PNG, or WebP)")
		return
	}
	if ext := filepath.Ext(header.Filename); !s.cfg.AllowedExtension(ext) {
		s.respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE",
			fmt.Sprintf("Supported formats: %s", strings.Join(s.cfg.AllowedExtensions, ", ")))
		return
	}

	baseplateSize, err := strconv.Atoi(r.FormValue("baseplateSize"))
	if err != nil || !mosaic.ValidSize(baseplateSize) {
		s.respondError(w, http.StatusBadRequest, "INVALID_BASEPLATE_SIZE",
			fmt.Sprintf("Baseplate size must be one of %v", mosaic.BaseplateSizes))
		return
	}

	pieceType := r.FormValue("pieceType")
	pal, ok := s.registry.Get(pieceType)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "INVALID_PIECE_TYPE",
			fmt.Sprintf("Piece type must be one of: %s", strings.Join(s.registry.Types(), ", ")))
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read uploaded file")
		return
	}

	result, err := s.gen.Generate(imageBytes, baseplateSize, pal)
	if err != nil {
		switch {
		case errors.Is(err, mosaic.ErrDecode):
			s.respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE",
				"Image data could not be decoded")
		case errors.Is(err, mosaic.ErrInvalidSize):
			s.respondError(w, http.StatusBadRequest, "INVALID_BASEPLATE_SIZE",
				fmt.Sprintf("Baseplate size must be one of %v", mosaic.BaseplateSizes))
		default:
			s.log.Error("mosaic generation failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "MOSAIC_GENERATION_FAILED",
				"Failed to generate mosaic")
		}
		return
	}

	s.sessions.Put(result)
	s.log.Info("mosaic generated",
		"session", result.SessionID,
		"size", baseplateSize,
		"pieceType", pieceType,
		"uniqueColors", result.Metadata.UniqueColors,
	)

	previewURL, err := s.previewDataURL(result)
	if err != nil {
		s.log.Error("preview rendering failed", "session", result.SessionID, "error", err)
	}

	s.respond(w, http.StatusOK, map[string]any{
		"sessionId": result.SessionID,
		"mosaic":    mosaicPayload{Result: result, PreviewURL: previewURL},
	})
}

func (s *Server) handleMosaic(w http.ResponseWriter, r *http.Request) {
	result, err := s.sessions.Get(r.PathValue("sessionId"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND",
			"Mosaic session not found or expired")
		return
	}

	previewURL, err := s.previewDataURL(result)
	if err != nil {
		s.log.Error("preview rendering failed", "session", result.SessionID, "error", err)
	}

	s.respond(w, http.StatusOK, map[string]any{
		"mosaic": mosaicPayload{Result: result, PreviewURL: previewURL},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	exportType := r.PathValue("exportType")

	result, err := s.sessions.Get(sessionID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND",
			"Mosaic session not found or expired")
		return
	}

	var (
		fileBytes []byte
		filename  string
		mediaType string
	)

	switch exportType {
	case "mosaic-png":
		fileBytes, err = s.renderer.MosaicPNG(result.Grid, 0)
		filename = fmt.Sprintf("mosaic-%s.png", sessionID)
		mediaType = "image/png"
	case "instructions-png":
		fileBytes, err = s.renderer.InstructionsPNG(result.Grid, result.ShoppingList)
		filename = fmt.Sprintf("instructions-%s.png", sessionID)
		mediaType = "image/png"
	case "shopping-csv":
		fileBytes, err = s.renderer.ShoppingCSV(result.ShoppingList, result.Metadata.PieceType)
		filename = fmt.Sprintf("shopping-list-%s.csv", sessionID)
		mediaType = "text/csv"
	case "pickabrick-csv":
		fileBytes, err = s.renderer.PickABrickCSV(result.ShoppingList)
		filename = fmt.Sprintf("pickabrick-%s.csv", sessionID)
		mediaType = "text/csv"
	default:
		s.respondError(w, http.StatusBadRequest, "INVALID_EXPORT_TYPE",
			"Export type must be mosaic-png, instructions-png, shopping-csv, or pickabrick-csv")
		return
	}

	if err != nil {
		s.log.Error("export failed", "session", sessionID, "type", exportType, "error", err)
		s.respondError(w, http.StatusInternalServerError, "EXPORT_FAILED",
			"Failed to generate export")
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(fileBytes); err != nil {
		s.log.Error("failed to write export", "session", sessionID, "error", err)
	}
}

// previewDataURL renders the mosaic preview PNG as a base64 data URL
func (s *Server) previewDataURL(result *mosaic.Result) (string, error) {
	preview, err := s.renderer.MosaicPNG(result.Grid, 0)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(preview), nil
}
