package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"rightmove-scraper/models"
)

const maxDrawCount = 100

type drawnListing struct {
	Record *models.ListingRecord `json:"record"`
	Images [][]byte              `json:"images"`
	Plot   []byte                `json:"plot"`
}

func registerListings(r chi.Router, d Deps) {
	r.Get("/listings/count", func(w http.ResponseWriter, req *http.Request) {
		n, err := d.Store.Count(req.Context())
		if err != nil {
			writeError(w, req, http.StatusInternalServerError, "store_error", err)
			return
		}
		render.JSON(w, req, map[string]any{"count": n})
	})

	r.Post("/listings/draw", func(w http.ResponseWriter, req *http.Request) {
		count := 1
		if v := req.URL.Query().Get("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxDrawCount {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_count", "detail": "count must be between 1 and 100"})
				return
			}
			count = n
		}
		drawn, err := d.Store.DrawUnused(req.Context(), count)
		if err != nil {
			writeError(w, req, http.StatusInternalServerError, "store_error", err)
			return
		}
		out := make([]drawnListing, 0, len(drawn))
		for _, s := range drawn {
			images := s.Images
			if images == nil {
				images = [][]byte{}
			}
			out = append(out, drawnListing{Record: s.Record, Images: images, Plot: s.Plot})
		}
		d.Logger.Info("[api] drew %d of %d requested listings", len(out), count)
		render.JSON(w, req, out)
	})

	r.Post("/listings/reset", func(w http.ResponseWriter, req *http.Request) {
		if err := d.Store.ResetUsed(req.Context()); err != nil {
			writeError(w, req, http.StatusInternalServerError, "store_error", err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true})
	})

	r.Get("/listings/{listingID}/images/{index}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "listingID")
		idx, err := strconv.Atoi(chi.URLParam(req, "index"))
		if err != nil || idx < 0 {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_index"})
			return
		}
		images, err := d.Store.ListingImages(req.Context(), id)
		if err != nil {
			writeError(w, req, http.StatusInternalServerError, "store_error", err)
			return
		}
		if idx >= len(images) {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "image_not_found"})
			return
		}
		writeBlob(w, images[idx])
	})

	r.Get("/listings/{listingID}/plot", func(w http.ResponseWriter, req *http.Request) {
		plot, err := d.Store.ListingPlot(req.Context(), chi.URLParam(req, "listingID"))
		if err != nil {
			writeError(w, req, http.StatusInternalServerError, "store_error", err)
			return
		}
		if plot == nil {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "plot_not_found"})
			return
		}
		writeBlob(w, plot)
	})
}

func writeError(w http.ResponseWriter, req *http.Request, status int, code string, err error) {
	render.Status(req, status)
	render.JSON(w, req, map[string]any{"error": code, "detail": err.Error()})
}

func writeBlob(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", http.DetectContentType(b))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}
