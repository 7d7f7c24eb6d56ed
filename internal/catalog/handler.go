// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"shelfdesk/internal/apperr"
	"shelfdesk/internal/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the /api/books router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleAdd)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleRemove)
	return r
}

// CategoryRoutes returns the /api/categories router.
func (h *Handler) CategoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/allcategories", h.handleCategories)
	r.Post("/addcategory", h.handleAddCategory)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := ListQuery{
		Search:   strings.TrimSpace(qs.Get("search")),
		Category: strings.TrimSpace(qs.Get("category")),
		Grade:    strings.TrimSpace(qs.Get("grade")),
		All:      strings.EqualFold(qs.Get("all"), "true"),
	}
	q.Page, _ = strconv.Atoi(qs.Get("page"))
	q.Limit, _ = strconv.Atoi(qs.Get("limit"))

	page, err := h.service.List(r.Context(), q)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"data":        page.Books,
		"totalPages":  page.TotalPages,
		"currentPage": page.CurrentPage,
		"totalBooks":  page.TotalBooks,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"success": true, "data": book})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var book Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Add(r.Context(), &book)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, map[string]any{"success": true, "data": created})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Update(r.Context(), chi.URLParam(r, "id"), fields); err != nil {
		web.Error(w, err)
		return
	}
	web.Message(w, http.StatusOK, "Book details updated successfully")
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		web.Error(w, err)
		return
	}
	web.Message(w, http.StatusOK, "Book deleted successfully")
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, categories)
}

func (h *Handler) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsAdmin     bool   `json:"isAdmin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.IsAdmin {
		web.Error(w, apperr.ErrForbidden)
		return
	}

	category, err := h.service.AddCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, category)
}
