package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/auth"
	httpmiddleware "github.com/wolfeidau/linkstash/internal/http"
	"github.com/wolfeidau/linkstash/internal/models"
)

type submitLinkRequest struct {
	Link        string    `json:"link"`
	SubmittedAt time.Time `json:"submitted_at"`
	Title       *string   `json:"title"`
	Sensitive   *bool     `json:"sensitive"`
}

// SubmitLink stores a new link for the signed-in user.
// POST /api/links
func (h *Handler) SubmitLink(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, auth.MsgNotSignedIn)
		return
	}

	var req submitLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Debug().Err(err).Msg("Invalid link request body")
		httpmiddleware.WriteError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	linkURL, ok := parseLinkURL(req.Link)
	if !ok {
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, MsgInvalidURL)
		return
	}

	link := &models.Link{
		ID:          uuid.Must(uuid.NewV7()),
		URL:         linkURL.String(),
		Title:       req.Title,
		Sensitive:   req.Sensitive != nil && *req.Sensitive,
		CreatedBy:   principal.ID,
		DateCreated: req.SubmittedAt,
	}

	if err := h.links.Create(r.Context(), link); err != nil {
		log.Error().Err(err).Str("principal_id", principal.ID).Msg("Failed to store link")
		httpmiddleware.WriteError(w, http.StatusInternalServerError, MsgDatabaseDown)
		return
	}

	httpmiddleware.WriteJSON(w, http.StatusCreated, link)
}

// ListLinks returns a page of the signed-in user's links, oldest first.
// GET /api/links?page=1&links_per_page=50
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, auth.MsgNotSignedIn)
		return
	}

	page, err := PageFromQuery(r, linksPerPageParam, defaultPageSize)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, MsgInvalidPage)
		return
	}

	links, err := h.links.ListByOwner(r.Context(), principal.ID, page)
	if err != nil {
		log.Error().Err(err).Str("principal_id", principal.ID).Msg("Failed to list links")
		httpmiddleware.WriteError(w, http.StatusInternalServerError, MsgLinksUnavailable)
		return
	}

	// owner ids are not exposed in listings
	for _, l := range links {
		l.CreatedBy = ""
	}
	if links == nil {
		links = []*models.Link{}
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, links)
}

// parseLinkURL accepts absolute URLs: a scheme plus a host or opaque part.
func parseLinkURL(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if u.Host == "" && u.Opaque == "" {
		return nil, false
	}
	return u, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	return dec.Decode(v)
}
