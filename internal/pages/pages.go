package pages

import (
	"embed"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/api"
	"github.com/wolfeidau/linkstash/internal/assets"
	"github.com/wolfeidau/linkstash/internal/auth"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/secrets"
	"github.com/wolfeidau/linkstash/internal/store"
	"github.com/wolfeidau/linkstash/internal/telemetry"
)

//go:embed templates/*.html
var templates embed.FS

const (
	linksPerPage   = 50
	apiKeysPerPage = 25
)

type pageData struct {
	Title       string
	User        *models.Principal
	Error       string
	CurrentPage int
	Pages       int
	Links       []*models.Link
	Keys        []*models.APIKey
	NewKey      string
}

// Handler serves the server-rendered HTML pages.
type Handler struct {
	renderer *assets.Renderer
	links    store.LinkStore
	keys     store.APIKeyStore
	secrets  *secrets.Generator
}

// NewHandler loads the embedded templates and returns the page handler.
func NewHandler(links store.LinkStore, keys store.APIKeyStore, gen *secrets.Generator) (*Handler, error) {
	renderer, err := assets.NewRenderer(templates, "templates/*.html", nil)
	if err != nil {
		return nil, err
	}

	return &Handler{
		renderer: renderer,
		links:    links,
		keys:     keys,
		secrets:  gen,
	}, nil
}

// Routes returns the page routes. Pages render for anonymous visitors;
// mutations need a session.
func (h *Handler) Routes(v *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.OptionalSession(v))

	r.Get("/", h.Index)
	r.Get("/apikeys", h.APIKeys)
	r.Post("/apikeys", h.CreateAPIKey)
	r.Post("/apikeys/{id}/delete", h.DeleteAPIKey)

	return r
}

// Index lists the signed-in user's links, oldest first.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "links", User: auth.PrincipalFromContext(r.Context())}
	if data.User == nil {
		h.renderer.Render(w, http.StatusOK, "index", data)
		return
	}

	page, err := api.PageFromQuery(r, "links_per_page", linksPerPage)
	if err != nil {
		data.Error = "The requested page is not valid."
		h.renderer.Render(w, http.StatusBadRequest, "index", data)
		return
	}
	data.CurrentPage = page.Number

	links, err := h.links.ListByOwner(r.Context(), data.User.ID, page)
	if err != nil {
		log.Error().Err(err).Str("principal_id", data.User.ID).Msg("Failed to list links")
		data.Error = "Database did not return any links."
		h.renderer.Render(w, http.StatusInternalServerError, "index", data)
		return
	}
	data.Links = links

	h.renderer.Render(w, http.StatusOK, "index", data)
}

// APIKeys lists the signed-in user's live keys, newest first.
func (h *Handler) APIKeys(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "api keys", User: auth.PrincipalFromContext(r.Context())}
	if data.User == nil {
		h.renderer.Render(w, http.StatusOK, "apikeys", data)
		return
	}

	status := h.loadKeys(r, data)
	h.renderer.Render(w, status, "apikeys", data)
}

// CreateAPIKey mints a key for the signed-in user and shows its secret once.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/apikeys", http.StatusSeeOther)
		return
	}

	data := &pageData{Title: "api keys", User: principal}

	secret, err := h.secrets.APIKey()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate api key")
		data.Error = "The API key could not be created."
		h.loadKeys(r, data)
		h.renderer.Render(w, http.StatusInternalServerError, "apikeys", data)
		return
	}

	key := &models.APIKey{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedBy: principal.ID,
		Key:       secret,
		KeyHash:   models.HashAPIKey(secret),
		Prefix:    secret[:secrets.APIKeyPrefixLen],
		CreatedAt: time.Now(),
	}

	if err := h.keys.Create(r.Context(), key); err != nil {
		log.Error().Err(err).Str("principal_id", principal.ID).Msg("Failed to store api key")
		data.Error = "The API key could not be created."
		h.loadKeys(r, data)
		h.renderer.Render(w, http.StatusInternalServerError, "apikeys", data)
		return
	}

	telemetry.GetMetrics().APIKeysCreatedTotal.Add(r.Context(), 1)
	log.Info().Str("principal_id", principal.ID).Str("key_id", key.ID.String()).Msg("Created api key")

	data.NewKey = secret
	status := h.loadKeys(r, data)
	if status == http.StatusOK {
		status = http.StatusCreated
	}
	h.renderer.Render(w, status, "apikeys", data)
}

// DeleteAPIKey revokes one of the signed-in user's keys.
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Redirect(w, r, "/apikeys", http.StatusSeeOther)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		log.Debug().Err(err).Msg("Invalid api key id")
		http.Redirect(w, r, "/apikeys", http.StatusSeeOther)
		return
	}

	err = h.keys.Delete(r.Context(), principal.ID, id)
	switch {
	case errors.Is(err, store.ErrAPIKeyNotFound):
		log.Debug().Str("key_id", id.String()).Msg("Api key not found for delete")
	case err != nil:
		log.Error().Err(err).Str("key_id", id.String()).Msg("Failed to delete api key")
	default:
		telemetry.GetMetrics().APIKeysRevokedTotal.Add(r.Context(), 1)
		log.Info().Str("principal_id", principal.ID).Str("key_id", id.String()).Msg("Revoked api key")
	}

	http.Redirect(w, r, "/apikeys", http.StatusSeeOther)
}

// loadKeys fills the key listing and returns the status to render with.
func (h *Handler) loadKeys(r *http.Request, data *pageData) int {
	page, err := api.PageFromQuery(r, "apikeys_per_page", apiKeysPerPage)
	if err != nil {
		page = store.Page{Number: 1, Size: apiKeysPerPage}
	}
	data.CurrentPage = page.Number

	keys, total, err := h.keys.ListByOwner(r.Context(), data.User.ID, page)
	if err != nil {
		log.Error().Err(err).Str("principal_id", data.User.ID).Msg("Failed to list api keys")
		if data.Error == "" {
			data.Error = "Database did not return any API keys."
		}
		return http.StatusInternalServerError
	}

	data.Keys = keys
	data.Pages = (total + page.Size - 1) / page.Size
	return http.StatusOK
}
