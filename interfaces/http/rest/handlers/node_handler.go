package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recipegraph/application/commands"
	"recipegraph/application/queries"
	"recipegraph/application/services"
	"recipegraph/pkg/common"
	pkgerrors "recipegraph/pkg/errors"
)

// defaultTraversalDepth applies when the depth parameter is absent.
const defaultTraversalDepth = 1

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	nodes     *services.NodeService
	traversal *services.TraversalService
	errors    *pkgerrors.ErrorHandler
	maxBody   int64
	logger    *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	nodes *services.NodeService,
	traversal *services.TraversalService,
	errorHandler *pkgerrors.ErrorHandler,
	maxBody int64,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		nodes:     nodes,
		traversal: traversal,
		errors:    errorHandler,
		maxBody:   maxBody,
		logger:    logger,
	}
}

// UpdateNodeRequest represents the request body for updating a node
type UpdateNodeRequest struct {
	Properties      map[string]any `json:"properties"`
	ExpectedVersion *int           `json:"expectedVersion,omitempty"`
	Replace         bool           `json:"replace,omitempty"`
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateNodeCommand
	if err := common.ParseJSONBody(w, r, &cmd, h.maxBody); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node, err := h.nodes.Create(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Debug("Node created", zap.String("node_id", node.ID().String()), zap.String("type", node.Type().String()))
	setETag(w, node.Version())
	common.RespondJSON(w, http.StatusCreated, node)
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.nodes.Get(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	setETag(w, node.Version())
	common.RespondJSON(w, http.StatusOK, node)
}

// UpdateNode handles PATCH /nodes/{nodeID}. The expected version comes from
// the body or an If-Match header; both must agree when both are sent.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, h.maxBody); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	expected, err := expectedVersion(r.Header.Get("If-Match"), req.ExpectedVersion)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node, err := h.nodes.Update(r.Context(), commands.UpdateNodeCommand{
		NodeID:          chi.URLParam(r, "nodeID"),
		Properties:      req.Properties,
		ExpectedVersion: expected,
		Replace:         req.Replace,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	setETag(w, node.Version())
	common.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.nodes.Delete(r.Context(), chi.URLParam(r, "nodeID")); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeNode handles DELETE /admin/nodes/{nodeID}
func (h *NodeHandler) PurgeNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if err := h.nodes.Purge(r.Context(), nodeID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	userID, _ := common.GetUserID(r.Context())
	h.logger.Info("Node purged by request", zap.String("node_id", nodeID), zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

// ListNodes handles GET /nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	limit, err := common.QueryInt(r, "limit", 0)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	page, err := h.nodes.List(r.Context(), queries.ListNodesQuery{
		Type:   r.URL.Query().Get("type"),
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}

// History handles GET /nodes/{nodeID}/history
func (h *NodeHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.nodes.History(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]any{"versions": records})
}

// Traverse handles GET /nodes/{nodeID}/traverse
func (h *NodeHandler) Traverse(w http.ResponseWriter, r *http.Request) {
	depth, err := common.QueryInt(r, "depth", defaultTraversalDepth)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.traversal.Traverse(r.Context(), queries.TraverseQuery{
		StartID: chi.URLParam(r, "nodeID"),
		Depth:   depth,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func setETag(w http.ResponseWriter, version int) {
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(version)))
}

// expectedVersion merges the If-Match header with the body field.
func expectedVersion(ifMatch string, body *int) (*int, error) {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return body, nil
	}

	raw := strings.Trim(strings.TrimPrefix(ifMatch, "W/"), `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return nil, pkgerrors.NewValidationError("If-Match must carry a node version")
	}
	if body != nil && *body != v {
		return nil, pkgerrors.NewValidationError("If-Match and expectedVersion disagree")
	}
	return &v, nil
}
