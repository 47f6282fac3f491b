package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/liuwen/promptreel/internal/gateway"
	"github.com/liuwen/promptreel/internal/model"
	"github.com/liuwen/promptreel/internal/validate"
)

// artifactView decorates an artifact with its recomputed validation
// outcome for rendering.
type artifactView struct {
	*model.Artifact
	Validation validate.Outcome `json:"validation"`
}

func view(a *model.Artifact) artifactView {
	return artifactView{Artifact: a, Validation: validate.Check(a.CurrentPrompt)}
}

func views(arts []*model.Artifact) []artifactView {
	out := make([]artifactView, 0, len(arts))
	for _, a := range arts {
		out = append(out, view(a))
	}
	return out
}

// writeWorkflowError maps the workflow error taxonomy onto HTTP codes.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var nf *model.NotFoundError
	var conflict *model.ConflictError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ---------------------------------------------------------------------------
// POST /api/generate
// ---------------------------------------------------------------------------

type generateRequest struct {
	ProductName     string `json:"product_name"`
	SellingPoints   string `json:"selling_points"`
	TargetMarket    string `json:"target_market"`
	TargetLanguage  string `json:"target_language"`
	OutputCount     int    `json:"output_count"`
	AudioOption     string `json:"audio_option"`
	BGMStyle        string `json:"bgm_style"`
	MotionIntensity string `json:"motion_intensity"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req gateway.GenerateRequest
	var err error
	if isMultipart(r) {
		req, err = parseGenerateForm(r)
	} else {
		req, err = parseGenerateJSON(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.ProductName) == "" {
		writeError(w, http.StatusBadRequest, "product_name is required")
		return
	}
	if strings.TrimSpace(req.SellingPoints) == "" {
		writeError(w, http.StatusBadRequest, "selling_points is required")
		return
	}
	if req.OutputCount == 0 {
		req.OutputCount = 3
	}

	arts, degraded := s.flow.GenerateBatch(r.Context(), req)

	resp := map[string]any{
		"artifacts": views(arts),
		"degraded":  degraded,
	}
	if degraded {
		resp["warning"] = "generation backend unavailable; placeholder prompts committed"
	}
	writeJSON(w, http.StatusCreated, resp)
}

func parseGenerateJSON(r *http.Request) (gateway.GenerateRequest, error) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return gateway.GenerateRequest{}, errors.New("invalid JSON body")
	}
	return gateway.GenerateRequest{
		ProductName:     req.ProductName,
		SellingPoints:   req.SellingPoints,
		TargetMarket:    req.TargetMarket,
		TargetLanguage:  req.TargetLanguage,
		OutputCount:     req.OutputCount,
		AudioOption:     req.AudioOption,
		BGMStyle:        req.BGMStyle,
		MotionIntensity: req.MotionIntensity,
	}, nil
}

func parseGenerateForm(r *http.Request) (gateway.GenerateRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return gateway.GenerateRequest{}, errors.New("invalid multipart body")
	}

	count := 0
	if v := r.FormValue("output_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return gateway.GenerateRequest{}, errors.New("output_count must be an integer")
		}
		count = n
	}

	req := gateway.GenerateRequest{
		ProductName:     r.FormValue("product_name"),
		SellingPoints:   r.FormValue("selling_points"),
		TargetMarket:    r.FormValue("target_market"),
		TargetLanguage:  r.FormValue("target_language"),
		OutputCount:     count,
		AudioOption:     r.FormValue("audio_option"),
		BGMStyle:        r.FormValue("bgm_style"),
		MotionIntensity: r.FormValue("motion_intensity"),
	}

	for _, part := range []struct {
		field string
		dst   **gateway.Attachment
	}{
		{"image", &req.Image},
		{"video", &req.Video},
	} {
		att, err := readAttachment(r, part.field)
		if err != nil {
			return gateway.GenerateRequest{}, err
		}
		*part.dst = att
	}
	return req, nil
}

// maxMultipartMemory bounds the in-memory portion of parsed uploads.
const maxMultipartMemory = 32 << 20

func readAttachment(r *http.Request, field string) (*gateway.Attachment, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid " + field + " attachment")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("read " + field + " attachment failed")
	}
	return &gateway.Attachment{Filename: header.Filename, Data: data}, nil
}

// ---------------------------------------------------------------------------
// GET /api/artifacts, GET /api/artifacts/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleListArtifacts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, views(s.store.List()))
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artifact": view(art),
		"record":   art.Record(),
	})
}

// ---------------------------------------------------------------------------
// GET /api/artifacts/{id}/versions
// ---------------------------------------------------------------------------

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	art, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       art.ID,
		"versions": art.Record(),
	})
}

// ---------------------------------------------------------------------------
// POST /api/artifacts/{id}/regenerate
// ---------------------------------------------------------------------------

type regenerateRequest struct {
	AdjustmentType string `json:"adjustment_type"`
	Note           string `json:"note"`
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !model.ValidPreset(req.AdjustmentType) {
		writeError(w, http.StatusBadRequest, "unknown adjustment_type")
		return
	}

	sess, err := s.flow.BeginRegeneration(id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	art, degraded, err := s.flow.ConfirmRegeneration(r.Context(), sess, req.AdjustmentType, req.Note)
	if err != nil {
		s.flow.CancelRegeneration(sess)
		writeWorkflowError(w, err)
		return
	}

	writeArtifactResult(w, art, degraded, "regeneration backend unavailable; fallback variant committed")
}

// ---------------------------------------------------------------------------
// POST /api/artifacts/{id}/edit
// ---------------------------------------------------------------------------

type editRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	sess, err := s.flow.BeginEdit(id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	art, degraded, err := s.flow.ConfirmEdit(r.Context(), sess, req.Prompt)
	if err != nil {
		s.flow.CancelEdit(sess)
		writeWorkflowError(w, err)
		return
	}

	writeArtifactResult(w, art, degraded, "optimization backend unavailable; raw draft committed")
}

func writeArtifactResult(w http.ResponseWriter, art *model.Artifact, degraded bool, warning string) {
	resp := map[string]any{
		"artifact": view(art),
		"degraded": degraded,
	}
	if degraded {
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// POST /api/validate
// ---------------------------------------------------------------------------

type validateRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, validate.Check(req.Prompt))
}

// ---------------------------------------------------------------------------
// POST /api/extract_product
// ---------------------------------------------------------------------------

type extractRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleExtractProduct(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	content, err := s.extractor.Extract(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// ---------------------------------------------------------------------------
// GET /api/healthz
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
