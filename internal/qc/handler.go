package qc

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/handlers"
	"github.com/JaimeStill/osprey/pkg/pagination"
	"github.com/JaimeStill/osprey/pkg/routes"
)

// Handler provides HTTP endpoints for QC sessions.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "qc"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for QC endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/qc",
		Children: []routes.Group{
			{
				Prefix: "/folders/{id}",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/enter", Handler: h.Enter, OpenAPI: docs.Enter},
					{Method: "GET", Pattern: "/next", Handler: h.Next, OpenAPI: docs.Next},
					{Method: "POST", Pattern: "/files/{fileId}", Handler: h.SubmitVerdict, OpenAPI: docs.Verdict},
					{Method: "GET", Pattern: "/summary", Handler: h.Summary, OpenAPI: docs.Summary},
					{Method: "POST", Pattern: "/finalize", Handler: h.Finalize, OpenAPI: docs.Finalize},
				},
			},
			{
				Prefix: "/projects/{id}",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.Overview, OpenAPI: docs.Overview},
					{Method: "GET", Pattern: "/folders", Handler: h.ListFolders, OpenAPI: docs.ListFolders},
					{Method: "POST", Pattern: "/level", Handler: h.AdvanceLevel, OpenAPI: docs.AdvanceLevel},
				},
			},
		},
	}
}

type enterRequest struct {
	Reviewer string `json:"reviewer"`
}

// Enter claims a folder for the requesting reviewer. A denied claim is reported
// in the body with granted set to false.
func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	item, ok := h.workItem(w, r)
	if !ok {
		return
	}

	var req enterRequest
	if !handlers.DecodeJSON(w, r, h.logger, &req, ErrReviewerRequired) {
		return
	}

	result, err := h.sys.EnterFolder(r.Context(), item, req.Reviewer)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Next returns the next pending file, or 204 when every sampled file is reviewed.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	item, ok := h.workItem(w, r)
	if !ok {
		return
	}

	file, err := h.sys.NextPendingFile(r.Context(), item)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if file == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, file)
}

// SubmitVerdict records a verdict for one sampled file.
func (h *Handler) SubmitVerdict(w http.ResponseWriter, r *http.Request) {
	item, ok := h.workItem(w, r)
	if !ok {
		return
	}

	var cmd VerdictCommand
	if !handlers.DecodeJSON(w, r, h.logger, &cmd, ErrInvalidSeverity) {
		return
	}

	file, err := h.sys.SubmitFileVerdict(r.Context(), item, r.PathValue("fileId"), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, file)
}

// Summary returns the folder's counts, thresholds, and proposed result.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	item, ok := h.workItem(w, r)
	if !ok {
		return
	}

	summary, err := h.sys.FolderSummary(r.Context(), item)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, summary)
}

// Finalize confirms the folder verdict. The client address is recorded with the verdict.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	item, ok := h.workItem(w, r)
	if !ok {
		return
	}

	var cmd FinalizeCommand
	if !handlers.DecodeJSON(w, r, h.logger, &cmd, ErrInvalidStatus) {
		return
	}
	cmd.Address = clientAddress(r)

	result, err := h.sys.FinalizeFolder(r.Context(), item, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Overview returns the project's QC settings and progress counts.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	v, projectID, ok := h.project(w, r)
	if !ok {
		return
	}

	overview, err := h.sys.ProjectOverview(r.Context(), v, projectID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, overview)
}

// ListFolders returns a page of the project's folders with their QC state.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	v, projectID, ok := h.project(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.ListFolders(r.Context(), v, projectID, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// AdvanceLevel re-evaluates the project's inspection level.
func (h *Handler) AdvanceLevel(w http.ResponseWriter, r *http.Request) {
	v, projectID, ok := h.project(w, r)
	if !ok {
		return
	}

	change, err := h.sys.AdvanceLevel(r.Context(), v, projectID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, change)
}

func (h *Handler) workItem(w http.ResponseWriter, r *http.Request) (catalog.WorkItem, bool) {
	item, err := catalog.ParseWorkItem(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return nil, false
	}
	return item, true
}

func (h *Handler) project(w http.ResponseWriter, r *http.Request) (*catalog.Variant, int64, bool) {
	projectID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || projectID < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidProject)
		return nil, 0, false
	}

	v, err := catalog.VariantByName(r.URL.Query().Get("variant"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return nil, 0, false
	}

	return v, projectID, true
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
