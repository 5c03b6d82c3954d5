package server

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	bandpart "github.com/wadansyaku/band-part-key-app"
	"github.com/wadansyaku/band-part-key-app/cache"
	"github.com/wadansyaku/band-part-key-app/format"
	"github.com/wadansyaku/band-part-key-app/model"
	"github.com/wadansyaku/band-part-key-app/store"
)

type uploadResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"file_id"`
	Name    string `json:"filename"`
	Size    int64  `json:"size"`
}

type analyzeResponse struct {
	Success   bool   `json:"success"`
	FileID    string `json:"file_id"`
	Name      string `json:"filename"`
	Pages     int    `json:"pages"`
	TextPages int    `json:"text_pages"`
	// Scanned is set when no page carries a text layer, so labels can
	// only be found by recognition.
	Scanned bool `json:"scanned"`
}

type extractRequest struct {
	FileID  string   `json:"file_id"`
	Pages   []int    `json:"pages,omitempty"`
	Targets []string `json:"targets,omitempty"`
}

type extractResponse struct {
	Success     bool           `json:"success"`
	OutputID    string         `json:"output_id"`
	DownloadURL string         `json:"download_url"`
	Pages       int            `json:"pages"`
	Parts       map[string]int `json:"parts"`
	Rasterized  int            `json:"rasterized"`
	Cached      bool           `json:"cached"`
	Warnings    []warningDTO   `json:"warnings"`
}

type warningDTO struct {
	Page    int    `json:"page,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toWarningDTOs(warnings []bandpart.Warning) []warningDTO {
	out := make([]warningDTO, len(warnings))
	for i, w := range warnings {
		out[i] = warningDTO{Page: w.Page, Kind: string(w.Kind), Message: w.Message}
	}
	return out
}

// handleUpload stores a multipart "file" field after checking that it is a
// PDF within the size limit.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErr(w, http.StatusRequestEntityTooLarge, "too_large", "File exceeds upload limit")
			return
		}
		writeErr(w, http.StatusBadRequest, "bad_request", "Missing file field")
		return
	}
	defer file.Close()

	kind, err := format.DetectFromReader(file, header.Size)
	if err != nil || kind != format.PDF {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_type", unsupportedMessage(kind))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}

	name := format.EnsureExtension(filepath.Base(header.Filename), format.PDF)
	stored, err := s.store.Save(r.Context(), store.KindUpload, name, "", file, limit)
	if errors.Is(err, store.ErrTooLarge) {
		writeErr(w, http.StatusRequestEntityTooLarge, "too_large", "File exceeds upload limit")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to store upload")
		writeErr(w, http.StatusInternalServerError, "storage_error", "Failed to store upload")
		return
	}

	s.log.Info().Str("file_id", stored.ID).Int64("size", stored.Size).Msg("Upload stored")
	writeJSON(w, http.StatusCreated, uploadResponse{Success: true, FileID: stored.ID, Name: stored.Name, Size: stored.Size})
}

func unsupportedMessage(kind format.Format) string {
	if kind == format.Unknown {
		return "Only PDF files are accepted"
	}
	return "Only PDF files are accepted, got " + kind.String()
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.lookup(w, r, store.KindUpload, chi.URLParam(r, "fileID"))
	if !ok {
		return
	}
	src, err := s.openSource(upload.Path)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, "unreadable", sanitizeError(err))
		return
	}
	defer src.Close()

	resp := analyzeResponse{Success: true, FileID: upload.ID, Name: upload.Name, Pages: src.NumPage()}
	for i := 0; i < resp.Pages; i++ {
		if src.HasTextLayer(i) {
			resp.TextPages++
		}
	}
	resp.Scanned = resp.TextPages == 0
	writeJSON(w, http.StatusOK, resp)
}

// handleExtract runs an extraction and stores the output. A region
// selection cached for the same content, settings and pages skips the
// analysis.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := parseJSON[extractRequest](r, 64<<10)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}
	if req.FileID == "" {
		writeErr(w, http.StatusBadRequest, "validation_failed", "file_id required")
		return
	}

	cfg := s.cfg.Extraction
	if len(req.Targets) > 0 {
		cfg.Targets = nil
		for _, name := range req.Targets {
			inst, err := model.ParseInstrument(name)
			if err != nil {
				writeErr(w, http.StatusBadRequest, "validation_failed", sanitizeError(err))
				return
			}
			cfg.Targets = append(cfg.Targets, inst)
		}
	}

	upload, ok := s.lookup(w, r, store.KindUpload, req.FileID)
	if !ok {
		return
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		writeErr(w, http.StatusServiceUnavailable, "capacity", "Service at capacity")
		return
	}
	defer s.sem.Release(1)

	title := strings.TrimSuffix(upload.Name, filepath.Ext(upload.Name))
	ex := s.openExtractor(upload.Path).
		WithConfig(cfg).
		Workers(s.cfg.Server.Workers).
		WithLogger(s.log.With().Str("file_id", upload.ID).Logger()).
		WithTitle(title)
	if len(req.Pages) > 0 {
		ex = ex.Pages(req.Pages...)
	}
	if s.recognizer != nil {
		ex = ex.WithRecognizer(s.recognizer)
	}

	key := s.regionKey(upload, cfg, req.Pages)
	var (
		buf      bytes.Buffer
		result   *bandpart.Result
		warnings []bandpart.Warning
		cached   bool
	)
	if regions, hit := s.cachedRegions(ctx, key); hit {
		cached = true
		result, warnings, err = ex.ComposeRegions(ctx, regions, &buf)
	} else {
		result, warnings, err = ex.Extract(ctx, &buf)
		if err == nil {
			s.storeRegions(ctx, key, result.Regions)
		}
	}
	if err != nil {
		s.writeExtractErr(ctx, w, err, warnings)
		return
	}

	out, err := s.store.Save(ctx, store.KindOutput, title+"_parts.pdf", upload.ID, &buf, 0)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to store output")
		writeErr(w, http.StatusInternalServerError, "storage_error", "Failed to store output")
		return
	}

	parts := make(map[string]int)
	for inst, n := range result.Parts() {
		parts[string(inst)] = n
	}
	writeJSON(w, http.StatusOK, extractResponse{
		Success:     true,
		OutputID:    out.ID,
		DownloadURL: "/api/download/" + out.ID,
		Pages:       result.Pages,
		Parts:       parts,
		Rasterized:  result.Rasterized,
		Cached:      cached,
		Warnings:    toWarningDTOs(warnings),
	})
}

func (s *Server) writeExtractErr(ctx context.Context, w http.ResponseWriter, err error, warnings []bandpart.Warning) {
	switch {
	case errors.Is(err, bandpart.ErrExtractionFailed):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:    sanitizeError(err),
			Code:     "extraction_failed",
			Warnings: toWarningDTOs(warnings),
		})
	case ctx.Err() != nil:
		writeErr(w, http.StatusGatewayTimeout, "timeout", "Extraction did not finish in time")
	default:
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
	}
}

func (s *Server) regionKey(upload *store.File, cfg bandpart.Config, pages []int) string {
	if s.regions == nil {
		return ""
	}
	key, err := cache.Key(upload.SHA256, cfg, pages)
	if err != nil {
		s.log.Warn().Err(err).Msg("Region cache key unavailable")
		return ""
	}
	return key
}

func (s *Server) cachedRegions(ctx context.Context, key string) ([]model.Region, bool) {
	if key == "" {
		return nil, false
	}
	regions, err := s.regions.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Msg("Region cache read failed")
		}
		return nil, false
	}
	return regions, true
}

func (s *Server) storeRegions(ctx context.Context, key string, regions []model.Region) {
	if key == "" {
		return
	}
	if err := s.regions.Put(ctx, key, regions); err != nil {
		s.log.Warn().Err(err).Msg("Region cache write failed")
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	out, ok := s.lookup(w, r, store.KindOutput, chi.URLParam(r, "outputID"))
	if !ok {
		return
	}
	f, err := os.Open(out.Path)
	if err != nil {
		writeErr(w, http.StatusGone, "expired", "Output is no longer available")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Name}))
	http.ServeContent(w, r, "", out.CreatedAt, f)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.lookup(w, r, store.KindUpload, chi.URLParam(r, "fileID"))
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "Invalid page number")
		return
	}

	src, err := s.openSource(upload.Path)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, "unreadable", sanitizeError(err))
		return
	}
	defer src.Close()

	if page < 1 || page > src.NumPage() {
		writeErr(w, http.StatusBadRequest, "bad_request", "Page out of range")
		return
	}
	img, err := src.Render(page-1, s.cfg.Server.PreviewDPI)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, "render_failed", sanitizeError(err))
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeErr(w, http.StatusInternalServerError, "internal_error", "Failed to encode preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.Purge(r.Context(), s.cfg.Storage.Retention)
	s.forgetRegions(r.Context(), removed)
	if err != nil {
		s.log.Error().Err(err).Msg("Cleanup failed")
		writeErr(w, http.StatusInternalServerError, "cleanup_failed", "Cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": len(removed)})
}

// forgetRegions drops the cached selections of purged uploads.
func (s *Server) forgetRegions(ctx context.Context, removed []store.File) {
	if s.regions == nil {
		return
	}
	for _, f := range removed {
		if f.Kind != store.KindUpload {
			continue
		}
		if err := s.regions.Forget(ctx, f.SHA256); err != nil {
			s.log.Warn().Err(err).Str("file_id", f.ID).Msg("Region cache cleanup failed")
		}
	}
}

// lookup fetches a stored file, writing a 404 when it does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, kind store.Kind, id string) (*store.File, bool) {
	f, err := s.store.Get(r.Context(), kind, id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not_found", "File not found")
		return nil, false
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Store lookup failed")
		writeErr(w, http.StatusInternalServerError, "storage_error", "Store lookup failed")
		return nil, false
	}
	return f, true
}
