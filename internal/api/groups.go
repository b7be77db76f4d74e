package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/auth"
	httpmiddleware "github.com/wolfeidau/linkstash/internal/http"
	"github.com/wolfeidau/linkstash/internal/models"
)

type submitGroupRequest struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Timestamptz time.Time `json:"timestamptz"`
}

// SubmitGroup stores a new group owned by the API key's creator.
// POST /api/groups
func (h *Handler) SubmitGroup(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, auth.MsgInvalidAPIKey)
		return
	}

	var req submitGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Debug().Err(err).Msg("Invalid group request body")
		httpmiddleware.WriteError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, MsgNameRequired)
		return
	}

	group := &models.Group{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   principal.ID,
		DateCreated: req.Timestamptz,
	}

	if err := h.groups.Create(r.Context(), group); err != nil {
		log.Error().Err(err).Str("principal_id", principal.ID).Msg("Failed to store group")
		httpmiddleware.WriteError(w, http.StatusInternalServerError, MsgDatabaseDown)
		return
	}

	httpmiddleware.WriteJSON(w, http.StatusCreated, group)
}

// ListGroups returns a page of the key owner's groups, newest first.
// GET /api/groups?page=1&groups_per_page=50
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, auth.MsgInvalidAPIKey)
		return
	}

	page, err := PageFromQuery(r, groupsPerPageParam, defaultPageSize)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, MsgInvalidPage)
		return
	}

	groups, err := h.groups.ListByOwner(r.Context(), principal.ID, page)
	if err != nil {
		log.Error().Err(err).Str("principal_id", principal.ID).Msg("Failed to list groups")
		httpmiddleware.WriteError(w, http.StatusInternalServerError, MsgGroupsUnavailable)
		return
	}

	for _, g := range groups {
		g.CreatedBy = ""
	}
	if groups == nil {
		groups = []*models.Group{}
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, groups)
}
