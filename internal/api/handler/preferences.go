package handler

import (
	"context"
	"net/http"

	"github.com/breatheroute/airwatch/internal/api/models"
	"github.com/breatheroute/airwatch/internal/api/response"
	"github.com/breatheroute/airwatch/internal/preferences"
)

// LayoutStore loads and saves the panel layout.
type LayoutStore interface {
	Layout(ctx context.Context) (preferences.Layout, error)
	SaveLayout(ctx context.Context, l preferences.Layout) (preferences.Layout, error)
}

// PreferencesHandler serves the saved dashboard layout.
type PreferencesHandler struct {
	store LayoutStore
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(store LayoutStore) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

// GetLayout handles GET /api/preferences/layout.
func (h *PreferencesHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.Layout(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, r, "preference store unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, toLayoutModel(l))
}

// PutLayout handles PUT /api/preferences/layout. Widths are clamped and the
// stored layout is returned.
func (h *PreferencesHandler) PutLayout(w http.ResponseWriter, r *http.Request) {
	var input models.Layout
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	l := preferences.Layout{LeftWidth: input.LeftWidth, RightWidth: input.RightWidth}
	if input.Preset != "" {
		preset, ok := preferences.LookupPreset(input.Preset)
		if !ok {
			response.BadRequest(w, r, "unknown layout preset", []models.FieldError{
				{Field: "preset", Message: "unknown preset " + input.Preset, Code: "unknown_preset"},
			})
			return
		}
		l = preset
	} else if l.LeftWidth == 0 || l.RightWidth == 0 {
		response.BadRequest(w, r, "leftWidth and rightWidth are required", nil)
		return
	}

	saved, err := h.store.SaveLayout(r.Context(), l)
	if err != nil {
		response.ServiceUnavailable(w, r, "preference store unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, toLayoutModel(saved))
}

func toLayoutModel(l preferences.Layout) models.Layout {
	return models.Layout{LeftWidth: l.LeftWidth, RightWidth: l.RightWidth}
}
