package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recipegraph/application/commands"
	"recipegraph/application/queries"
	"recipegraph/application/services"
	"recipegraph/pkg/common"
	pkgerrors "recipegraph/pkg/errors"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	edges   *services.EdgeService
	errors  *pkgerrors.ErrorHandler
	maxBody int64
	logger  *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(edges *services.EdgeService, errorHandler *pkgerrors.ErrorHandler, maxBody int64, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{
		edges:   edges,
		errors:  errorHandler,
		maxBody: maxBody,
		logger:  logger,
	}
}

// CreateEdge handles POST /edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateEdgeCommand
	if err := common.ParseJSONBody(w, r, &cmd, h.maxBody); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	edge, err := h.edges.Create(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, edge)
}

// ListEdges handles GET /edges
func (h *EdgeHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.edges.List(r.Context(), queries.ListEdgesQuery{
		FromID: q.Get("from"),
		ToID:   q.Get("to"),
		Type:   q.Get("type"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, list)
}

// DeleteEdge handles DELETE /edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "edgeID"), 10, 64)
	if err != nil || id <= 0 {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("edge id must be a positive integer"))
		return
	}

	if err := h.edges.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
