package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"menu-planner/internal/menu"
)

// menuPayload is the wire shape of a menu being edited. Courses carry their
// client-generated local id so identity stays stable across saves.
type menuPayload struct {
	ID         *int64          `json:"id,omitempty"`
	Name       string          `json:"name"`
	GuestCount int             `json:"guest_count"`
	PrepDays   int             `json:"prep_days"`
	Courses    []coursePayload `json:"courses"`
}

type coursePayload struct {
	LocalID     string `json:"local_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (p menuPayload) toDomain(userID string) menu.Menu {
	m := menu.Menu{
		ID:         p.ID,
		Name:       p.Name,
		GuestCount: p.GuestCount,
		PrepDays:   p.PrepDays,
		UserID:     userID,
	}
	for i, c := range p.Courses {
		course := menu.NewCourse(c.Title, c.Description)
		if c.LocalID != "" {
			course.LocalID = c.LocalID
		}
		course.Order = i
		m.Courses = append(m.Courses, course)
	}
	return m
}

func menuIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.menus.ListByUser(r.Context(), userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"menus": menus})
}

func (s *Server) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	id, err := menuIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid menu id"))
		return
	}

	m, err := s.menus.Get(r.Context(), id, userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, errors.New("menu not found"))
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// handleSaveMenu serves both POST /menus and PUT /menus/{id}: upsert keyed
// by the optional id.
func (s *Server) handleSaveMenu(w http.ResponseWriter, r *http.Request) {
	var payload menuPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if idStr := chi.URLParam(r, "id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("invalid menu id"))
			return
		}
		payload.ID = &id
	}

	if payload.GuestCount < 1 {
		respondError(w, http.StatusBadRequest, errors.New("guest count must be at least 1"))
		return
	}
	if payload.PrepDays < 1 {
		respondError(w, http.StatusBadRequest, errors.New("prep days must be at least 1"))
		return
	}

	uid := userID(r)
	m := payload.toDomain(uid)

	// Updates keep existing recipes attached to surviving courses.
	if m.ID != nil {
		existing, err := s.menus.Get(r.Context(), *m.ID, uid)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		if existing == nil {
			respondError(w, http.StatusNotFound, errors.New("menu not found"))
			return
		}
		if existing.PlanningComplete {
			respondError(w, http.StatusConflict, menu.ErrPlanningLocked)
			return
		}
		m.PlanningComplete = existing.PlanningComplete
		m.CreatedAt = existing.CreatedAt
		for i := range m.Courses {
			if prev := existing.CourseByLocalID(m.Courses[i].LocalID); prev != nil {
				m.Courses[i].Recipe = prev.Recipe
			}
		}
	}

	store := menu.NewStoreFromMenu(s.menus, s.gen, m)
	if err := store.Save(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if saved := store.Menu(); saved.ID != nil {
		s.sessions.drop(*saved.ID)
	}

	status := http.StatusOK
	if payload.ID == nil {
		status = http.StatusCreated
	}
	respondJSON(w, status, store.Menu())
}

func (s *Server) handleDeleteMenu(w http.ResponseWriter, r *http.Request) {
	id, err := menuIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid menu id"))
		return
	}

	if err := s.menus.DeleteMenu(r.Context(), id, userID(r)); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.sessions.drop(id)
	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type confirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (s *Server) handleCompletePlanning(w http.ResponseWriter, r *http.Request) {
	s.handlePlanningTransition(w, r, func(store *menu.Store, confirmed bool) error {
		return store.CompletePlanning(r.Context(), confirmed)
	})
}

func (s *Server) handleReopenPlanning(w http.ResponseWriter, r *http.Request) {
	s.handlePlanningTransition(w, r, func(store *menu.Store, confirmed bool) error {
		return store.ReopenPlanning(r.Context(), confirmed)
	})
}

func (s *Server) handlePlanningTransition(w http.ResponseWriter, r *http.Request, transition func(*menu.Store, bool) error) {
	id, err := menuIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid menu id"))
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	m, err := s.menus.Get(r.Context(), id, userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, errors.New("menu not found"))
		return
	}

	store := menu.NewStoreFromMenu(s.menus, s.gen, *m)
	if err := transition(store, req.Confirmed); err != nil {
		if errors.Is(err, menu.ErrConfirmationRequired) {
			respondError(w, http.StatusConflict, err)
			return
		}
		respondError(w, http.StatusBadRequest, err)
		return
	}
	s.sessions.drop(id)
	respondJSON(w, http.StatusOK, store.Menu())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := menuIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid menu id"))
		return
	}

	m, err := s.menus.Get(r.Context(), id, userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, errors.New("menu not found"))
		return
	}

	documents, err := s.menus.ListDocuments(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": documents})
}
