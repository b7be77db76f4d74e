package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"net/http"

	"github.com/Masterminds/sprig/v3"
	"github.com/rs/zerolog/log"
)

// Renderer executes server-side HTML templates loaded from a file system.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses every template in fsys matching pattern. The sprig
// function map is available to all templates, along with marshal and safe;
// customFuncs take precedence.
func NewRenderer(fsys fs.FS, pattern string, customFuncs template.FuncMap) (*Renderer, error) {
	funcs := template.FuncMap(sprig.FuncMap())
	funcs["marshal"] = marshal
	funcs["safe"] = func(s string) template.HTML {
		return template.HTML(s) //nolint:gosec
	}

	// Merge custom functions
	maps.Copy(funcs, customFuncs)

	tmpl, err := template.New("").Funcs(funcs).ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates %s: %w", pattern, err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template into a buffer and writes it with the
// given status, so a failing template never produces a partial page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	buf := new(bytes.Buffer)
	if err := r.tmpl.ExecuteTemplate(buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Str("template", name).Msg("Failed to write page")
	}
}

func marshal(value any) (string, error) {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		return "", errors.New("context can only be json serializable")
	}

	return buf.String(), nil
}
