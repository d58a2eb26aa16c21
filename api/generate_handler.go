package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type GenerateRequest struct {
	Count int `json:"count"`
}

func registerGenerate(r chi.Router, d Deps) {
	r.Post("/generate", func(w http.ResponseWriter, req *http.Request) {
		var body GenerateRequest
		if err := render.DecodeJSON(req.Body, &body); err != nil && !errors.Is(err, io.EOF) {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if body.Count < 1 {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "count_required"})
			return
		}

		run, err := d.Generator.Generate(req.Context(), body.Count, func(pct int) {
			d.Logger.Debug("[api] generate progress %d%%", pct)
		})
		if err != nil {
			writeError(w, req, http.StatusBadGateway, "generate_error", err)
			return
		}
		d.Logger.Info("[api] run %s stored %d listings (%d cities failed)", run.ID, len(run.Listings), run.Failed)
		render.JSON(w, req, map[string]any{"run_id": run.ID, "listings": run.Listings, "failed": run.Failed})
	})
}
