// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"net/http"

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

// AuthRoutes returns the /api/auth router.
func (h *Handler) AuthRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.handleRegister)
	r.Post("/signin", h.handleSignIn)
	return r
}

// Routes returns the /api/students router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/getstudent/{id}", h.handleGet)
	r.Get("/allstudents", h.handleAll)
	r.Put("/updatestudent/{id}", h.handleUpdate)
	r.Put("/{id}/move-to-activetransactions", h.handleMoveToActive)
	r.Put("/{id}/move-to-prevtransactions", h.handleMoveToPrev)
	r.Delete("/deletestudent/{id}", h.handleRemove)
	return r
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.service.Register(r.Context(), req)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, student)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	student, token, err := h.service.SignIn(r.Context(), req.StudentID, req.Email, req.Password)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"student": student, "token": token})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	student, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, student)
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.All(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.JSON(w, http.StatusOK, students)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	// accounts may only be edited by their owner or an admin
	userID, _ := fields["userId"].(string)
	isAdmin, _ := fields["isAdmin"].(bool)
	if userID != id && !isAdmin {
		web.Message(w, http.StatusForbidden, "You can update only your account!")
		return
	}

	if err := h.service.Update(r.Context(), id, fields); err != nil {
		web.Error(w, err)
		return
	}
	web.Message(w, http.StatusOK, "Student account has been updated")
}

func (h *Handler) handleMoveToActive(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, true)
}

func (h *Handler) handleMoveToPrev(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, false)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, toActive bool) {
	var req struct {
		UserID  string `json:"userId"`
		IsAdmin bool   `json:"isAdmin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.IsAdmin {
		web.Error(w, apperr.ErrForbidden)
		return
	}

	txnID := chi.URLParam(r, "id")
	var err error
	var msg string
	if toActive {
		err = h.service.MoveToActive(r.Context(), req.UserID, txnID)
		msg = "Added to Active Transactions"
	} else {
		err = h.service.MoveToPrev(r.Context(), req.UserID, txnID)
		msg = "Moved to Previous Transactions"
	}
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Message(w, http.StatusOK, msg)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		UserID  string `json:"userId"`
		IsAdmin bool   `json:"isAdmin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID != id && !req.IsAdmin {
		web.Message(w, http.StatusForbidden, "You can delete only your account!")
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		web.Error(w, err)
		return
	}
	web.Message(w, http.StatusOK, "Student account has been deleted")
}
