package catalogserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	store *MemoryStore
}

func NewHandler(store *MemoryStore) *Handler {
	return &Handler{store: store}
}

// Routes mirrors the storefront's REST catalog.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/stock/{id}", h.GetStock)
	return r
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListProducts())
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.store.GetProduct(id)
	if errors.Is(err, ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s, err := h.store.GetStock(id)
	if errors.Is(err, ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		// json-server answers unknown ids with an empty object and 404
		writeJSON(w, http.StatusNotFound, map[string]string{})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
