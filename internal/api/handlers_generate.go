package api

import (
	"errors"
	"net/http"
	"time"

	"menu-planner/internal/docs"
	"menu-planner/internal/menu"
	"menu-planner/internal/metrics"
)

type generateRecipeRequest struct {
	MenuID        int64  `json:"menu_id"`
	CourseLocalID string `json:"course_local_id"`
	Requirements  string `json:"requirements,omitempty"`
}

func (s *Server) handleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var req generateRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.CourseLocalID == "" {
		respondError(w, http.StatusBadRequest, errors.New("course_local_id is required"))
		return
	}

	store, ok := s.openStore(w, r, req.MenuID)
	if !ok {
		return
	}

	start := time.Now()
	rec, err := store.GenerateRecipe(r.Context(), req.CourseLocalID, req.Requirements)
	metrics.GenerationDuration.WithLabelValues("recipe").Observe(time.Since(start).Seconds())
	if err != nil {
		s.reportGenerationFailure(w, "recipe", "Recipe generation failed", err)
		return
	}

	metrics.GenerationAttempts.WithLabelValues("recipe", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"recipe": rec,
		"menu":   store.Menu(),
	})
}

type generateMenuRequest struct {
	MenuID      int64  `json:"menu_id"`
	Prompt      string `json:"prompt"`
	CourseCount int    `json:"course_count,omitempty"`
}

func (s *Server) handleGenerateMenu(w http.ResponseWriter, r *http.Request) {
	var req generateMenuRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, errors.New("prompt is required"))
		return
	}

	store, ok := s.openStore(w, r, req.MenuID)
	if !ok {
		return
	}

	start := time.Now()
	added, err := store.GenerateMenuCourses(r.Context(), req.Prompt, req.CourseCount)
	metrics.GenerationDuration.WithLabelValues("menu").Observe(time.Since(start).Seconds())
	if err != nil {
		s.reportGenerationFailure(w, "menu", "Menu generation failed", err)
		return
	}

	if err := store.Save(r.Context()); err != nil {
		s.reportGenerationFailure(w, "menu", "Failed to save generated courses", err)
		return
	}

	metrics.GenerationAttempts.WithLabelValues("menu", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"courses": added,
		"menu":    store.Menu(),
	})
}

type generateDocumentsRequest struct {
	MenuID int64 `json:"menu_id"`
}

func (s *Server) handleGenerateDocuments(w http.ResponseWriter, r *http.Request) {
	var req generateDocumentsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	m, ok := s.loadMenu(w, r, req.MenuID)
	if !ok {
		return
	}
	if !m.PlanningComplete {
		respondError(w, http.StatusConflict, errors.New("complete planning before generating documents"))
		return
	}

	start := time.Now()
	err := s.docs.Generate(r.Context(), docs.Request{
		MenuID:     *m.ID,
		MenuName:   m.Name,
		Courses:    m.Courses,
		GuestCount: m.GuestCount,
		PrepDays:   m.PrepDays,
	})
	metrics.GenerationDuration.WithLabelValues("documents").Observe(time.Since(start).Seconds())
	if err != nil {
		s.reportGenerationFailure(w, "documents", "Document generation failed", err)
		return
	}

	metrics.GenerationAttempts.WithLabelValues("documents", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type importRecipeRequest struct {
	MenuID        int64  `json:"menu_id"`
	CourseLocalID string `json:"course_local_id"`
	URL           string `json:"url"`
}

func (s *Server) handleImportRecipe(w http.ResponseWriter, r *http.Request) {
	var req importRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	m, ok := s.loadMenu(w, r, req.MenuID)
	if !ok {
		return
	}
	if m.PlanningComplete {
		respondError(w, http.StatusConflict, menu.ErrPlanningLocked)
		return
	}
	course := m.CourseByLocalID(req.CourseLocalID)
	if course == nil || course.DBID == nil {
		respondError(w, http.StatusBadRequest, errors.New("course must be saved before importing a recipe"))
		return
	}

	rec, err := s.importer.ImportFromURL(r.Context(), req.URL, m.GuestCount)
	if err != nil {
		s.reportGenerationFailure(w, "importer", "Recipe import failed", err)
		return
	}

	rec.CourseID = *course.DBID
	rec.CreatedBy = userID(r)
	if err := s.menus.SaveRecipe(r.Context(), rec); err != nil {
		s.reportGenerationFailure(w, "importer", "Failed to save imported recipe", err)
		return
	}

	metrics.GenerationAttempts.WithLabelValues("importer", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"recipe": rec})
}

var errMenuNotFound = errors.New("menu not found")

// openStore returns the shared editing store for the caller's menu, loading
// the menu on first use. Reusing one store per menu keeps the single
// in-flight generation guarantee intact across concurrent requests.
func (s *Server) openStore(w http.ResponseWriter, r *http.Request, menuID int64) (*menu.Store, bool) {
	if menuID == 0 {
		respondError(w, http.StatusBadRequest, errors.New("menu_id is required"))
		return nil, false
	}
	store, err := s.sessions.get(menuID, func() (*menu.Store, error) {
		m, err := s.menus.Get(r.Context(), menuID, userID(r))
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errMenuNotFound
		}
		return menu.NewStoreFromMenu(s.menus, s.gen, *m), nil
	})
	if errors.Is(err, errMenuNotFound) {
		respondError(w, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	if store.Menu().UserID != userID(r) {
		respondError(w, http.StatusNotFound, errMenuNotFound)
		return nil, false
	}
	return store, true
}

func (s *Server) loadMenu(w http.ResponseWriter, r *http.Request, menuID int64) (*menu.Menu, bool) {
	if menuID == 0 {
		respondError(w, http.StatusBadRequest, errors.New("menu_id is required"))
		return nil, false
	}
	m, err := s.menus.Get(r.Context(), menuID, userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	if m == nil {
		respondError(w, http.StatusNotFound, errors.New("menu not found"))
		return nil, false
	}
	return m, true
}

// reportGenerationFailure is the shared failure path for the generation
// endpoints: metrics, admin alert, and the structured error envelope.
func (s *Server) reportGenerationFailure(w http.ResponseWriter, agent, summary string, err error) {
	metrics.GenerationAttempts.WithLabelValues(agent, "failure").Inc()
	s.notifier.AlertGenerationFailure(agent, err)

	switch {
	case errors.Is(err, menu.ErrGenerationInFlight):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, menu.ErrPlanningLocked):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, menu.ErrCourseNotFound):
		respondError(w, http.StatusNotFound, err)
	default:
		respondGenerationError(w, summary, err)
	}
}
