package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"manuscript-symbols/internal/classify"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/signature"
	"manuscript-symbols/internal/symbol"
	"manuscript-symbols/pkg/geometry"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SymbolsHandler serves symbol retrieval, manual creation, and
// categorization.
type SymbolsHandler struct {
	repo      *symbol.Repository
	classify  *classify.Service
	pages     *page.Store
	imageRoot string
	log       zerolog.Logger
}

// NewSymbolsHandler creates a symbols handler.
func NewSymbolsHandler(repo *symbol.Repository, svc *classify.Service, pages *page.Store, imageRoot string, logger zerolog.Logger) *SymbolsHandler {
	return &SymbolsHandler{
		repo:      repo,
		classify:  svc,
		pages:     pages,
		imageRoot: imageRoot,
		log:       logger,
	}
}

// CreateSymbolDTO is the request body for manual symbol creation, for
// regions the detector missed.
type CreateSymbolDTO struct {
	PageID   int64             `json:"pageId"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Category *string           `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Create handles POST /api/symbols. The similarity descriptor is computed
// from the page scan so manually created symbols participate in frequency
// counts like extracted ones.
func (h *SymbolsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateSymbolDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	pg, err := h.pages.Get(r.Context(), dto.PageID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	box := geometry.RectInt{X: dto.X, Y: dto.Y, Width: dto.Width, Height: dto.Height}
	if box.Width < 1 || box.Height < 1 || !pg.Bounds().ContainsRect(box) {
		writeError(w, http.StatusUnprocessableEntity, "invalid bounding box",
			"box must be non-empty and inside the page")
		return
	}

	img, err := page.LoadImage(h.imageRoot, pg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "page image unreadable", err.Error())
		return
	}
	desc, err := signature.Compute(img, box)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid bounding box", err.Error())
		return
	}

	s := &symbol.Symbol{
		PageID:        dto.PageID,
		X:             dto.X,
		Y:             dto.Y,
		Width:         dto.Width,
		Height:        dto.Height,
		Category:      dto.Category,
		Signature:     desc.Signature,
		MeanIntensity: desc.MeanIntensity,
		Metadata:      dto.Metadata,
	}
	if err := h.repo.Insert(r.Context(), s); err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.Info().Int64("symbol_id", s.ID).Int64("page_id", s.PageID).Msg("symbol created manually")
	writeJSON(w, http.StatusCreated, s)
}

// Get handles GET /api/symbols/{symbolId}.
func (h *SymbolsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.symbolID(w, r)
	if !ok {
		return
	}
	s, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListByPage handles GET /api/pages/{pageId}/symbols, in reading order.
func (h *SymbolsHandler) ListByPage(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "pageId")
	pageID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found", "malformed page id "+raw)
		return
	}
	if _, err := h.pages.Get(r.Context(), pageID); err != nil {
		writeDomainError(w, err)
		return
	}

	symbols, err := h.repo.ListByPage(r.Context(), pageID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if symbols == nil {
		symbols = []*symbol.Symbol{}
	}
	writeJSON(w, http.StatusOK, symbols)
}

// ListSimilar handles GET /api/symbols/{symbolId}/similar.
func (h *SymbolsHandler) ListSimilar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.symbolID(w, r)
	if !ok {
		return
	}
	symbols, err := h.repo.ListSimilar(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if symbols == nil {
		symbols = []*symbol.Symbol{}
	}
	writeJSON(w, http.StatusOK, symbols)
}

// CategoryDTO is the request body for single categorization.
type CategoryDTO struct {
	Category string `json:"category"`
}

// SetCategory handles POST /api/symbols/{symbolId}/category.
func (h *SymbolsHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.symbolID(w, r)
	if !ok {
		return
	}
	var dto CategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	s, err := h.classify.Categorize(r.Context(), id, dto.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// BulkCategoryDTO is the request body for bulk categorization.
type BulkCategoryDTO struct {
	SymbolIDs []int64 `json:"symbolIds"`
	Category  string  `json:"category"`
}

// SetCategoryBulk handles POST /api/symbols/category:bulk. The response
// carries one result per requested symbol; unknown ids fail their entry
// without aborting the batch.
func (h *SymbolsHandler) SetCategoryBulk(w http.ResponseWriter, r *http.Request) {
	var dto BulkCategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	results, err := h.classify.CategorizeBulk(r.Context(), dto.SymbolIDs, dto.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *SymbolsHandler) symbolID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "symbolId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found", "malformed symbol id "+raw)
		return 0, false
	}
	return id, true
}
