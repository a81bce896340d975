package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"recipegraph/application/queries"
	"recipegraph/application/services"
	"recipegraph/pkg/common"
	pkgerrors "recipegraph/pkg/errors"
)

// SearchHandler serves full-text search
type SearchHandler struct {
	search *services.SearchService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, errors: errorHandler, logger: logger}
}

// Search handles GET /search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := common.QueryInt(r, "limit", 0)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	q := r.URL.Query()
	hits, err := h.search.Search(r.Context(), queries.SearchQuery{
		Query:    q.Get("q"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Limit:    limit,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]any{"items": hits})
}
