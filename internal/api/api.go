package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfeidau/linkstash/internal/auth"
	httpmiddleware "github.com/wolfeidau/linkstash/internal/http"
	"github.com/wolfeidau/linkstash/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

const (
	pageParam          = "page"
	linksPerPageParam  = "links_per_page"
	groupsPerPageParam = "groups_per_page"

	maxRequestBodyBytes = 64 * 1024
)

// Error messages returned by the JSON API.
const (
	MsgInvalidURL        = "not a valid url"
	MsgInvalidBody       = "request body is not valid"
	MsgInvalidPage       = "pagination parameters are not valid"
	MsgNameRequired      = "group name is required"
	MsgDatabaseDown      = "database was unreachable"
	MsgLinksUnavailable  = "couldn't retrieve links from database"
	MsgGroupsUnavailable = "couldn't retrieve groups from database"
)

var errInvalidPage = errors.New("invalid pagination parameters")

// Handler serves the links and groups JSON API.
type Handler struct {
	links  store.LinkStore
	groups store.GroupStore
}

// NewHandler creates the API handler over the link and group stores.
func NewHandler(links store.LinkStore, groups store.GroupStore) *Handler {
	return &Handler{links: links, groups: groups}
}

// Routes returns the API routes. Links are owned by browser sessions and
// groups by API keys; each route accepts exactly one credential scheme.
func (h *Handler) Routes(v *auth.Verifier) http.Handler {
	r := chi.NewRouter()

	r.Route("/links", func(r chi.Router) {
		r.Use(auth.RequireSession(v))
		r.Post("/", h.SubmitLink)
		r.Get("/", h.ListLinks)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Use(auth.RequireAPIKey(v))
		r.Post("/", h.SubmitGroup)
		r.Get("/", h.ListGroups)
	})

	return r
}

// Health reports that the process is serving requests.
func Health(w http.ResponseWriter, _ *http.Request) {
	httpmiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PageFromQuery reads a 1-based page number and a page size from the query
// string. Missing values fall back to the first page and defaultSize.
func PageFromQuery(r *http.Request, sizeParam string, defaultSize int) (store.Page, error) {
	q := r.URL.Query()

	var page store.Page
	if v := q.Get(pageParam); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, errInvalidPage
		}
		page.Number = n
	}
	if v := q.Get(sizeParam); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, errInvalidPage
		}
		page.Size = n
	}

	page = page.Normalize(defaultSize, maxPageSize)
	if page.Number-1 > math.MaxInt/page.Size {
		return page, errInvalidPage
	}
	return page, nil
}
