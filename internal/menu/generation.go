package menu

import (
	"context"
	"errors"
	"fmt"
)

// Stage names the step of the generation pipeline that failed.
type Stage string

const (
	StageEnsurePersisted Stage = "ensure_persisted"
	StageGenerate        Stage = "generate"
	StagePersistResult   Stage = "persist_result"
)

// PipelineError carries the failed pipeline stage alongside the cause.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("recipe generation failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ErrGenerationInFlight rejects overlapping generation requests; the store
// holds a single mutual-exclusion token and does not queue.
var ErrGenerationInFlight = errors.New("another generation is already in flight")

// RecipeRequest asks for a recipe for one course.
type RecipeRequest struct {
	CourseTitle  string
	GuestCount   int
	Requirements string
}

// MenuRequest asks for a full course list from a theme prompt.
type MenuRequest struct {
	Prompt      string
	MenuName    string
	GuestCount  int
	CourseCount int
}

// Generator produces recipes and course lists. Implemented by the recipe
// package on top of a text generator.
type Generator interface {
	GenerateRecipe(ctx context.Context, req RecipeRequest) (*Recipe, error)
	GenerateCourses(ctx context.Context, req MenuRequest) ([]string, error)
}

// acquireGeneration claims the in-flight token for the given course (or the
// whole menu when marker is "menu"). Returns ErrGenerationInFlight when the
// token is already held.
func (s *Store) acquireGeneration(marker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generatingFor != "" {
		return ErrGenerationInFlight
	}
	s.generatingFor = marker
	s.notifyLocked()
	return nil
}

func (s *Store) releaseGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generatingFor = ""
	s.notifyLocked()
}

// GenerateRecipe runs the ensurePersisted → generate → persistResult
// pipeline for one course. The course must end up with a database id before
// the generation call is made: an unpersisted menu is saved implicitly, and
// the save is retried exactly once if the course still lacks an id.
func (s *Store) GenerateRecipe(ctx context.Context, localID, requirements string) (*Recipe, error) {
	if err := s.acquireGeneration(localID); err != nil {
		return nil, err
	}
	defer s.releaseGeneration()

	req, createdBy, err := s.ensurePersisted(ctx, localID, requirements)
	if err != nil {
		return nil, &PipelineError{Stage: StageEnsurePersisted, Err: err}
	}

	// The mutex is not held across the network call; the in-flight token is
	// the exclusion mechanism.
	draft, err := s.gen.GenerateRecipe(ctx, req.request)
	if err != nil {
		return nil, &PipelineError{Stage: StageGenerate, Err: err}
	}

	draft.ClampTimes()
	draft.Servings = req.request.GuestCount
	draft.CourseID = req.courseID
	draft.CreatedBy = createdBy

	if err := s.repo.SaveRecipe(ctx, draft); err != nil {
		return nil, &PipelineError{Stage: StagePersistResult, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if course := s.menu.CourseByLocalID(localID); course != nil {
		course.Recipe = draft
	}
	s.menu.OriginalConfig = &OriginalConfig{
		GuestCount:  s.menu.GuestCount,
		PrepDays:    s.menu.PrepDays,
		CourseCount: len(s.menu.Courses),
	}
	s.notifyLocked()

	return draft, nil
}

type persistedRequest struct {
	request  RecipeRequest
	courseID int64
}

func (s *Store) ensurePersisted(ctx context.Context, localID, requirements string) (persistedRequest, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.menu.PlanningComplete {
		return persistedRequest{}, "", ErrPlanningLocked
	}

	course := s.menu.CourseByLocalID(localID)
	if course == nil {
		return persistedRequest{}, "", ErrCourseNotFound
	}

	if s.menu.ID == nil || course.DBID == nil {
		if err := s.saveLocked(ctx); err != nil {
			return persistedRequest{}, "", err
		}
		course = s.menu.CourseByLocalID(localID)
	}

	// One more save attempt if the id is still missing; no infinite retry.
	if course == nil || course.DBID == nil {
		if err := s.saveLocked(ctx); err != nil {
			return persistedRequest{}, "", err
		}
		course = s.menu.CourseByLocalID(localID)
	}

	if course == nil || course.DBID == nil {
		return persistedRequest{}, "", fmt.Errorf("course %q could not be persisted; recipe generation aborted", localID)
	}

	return persistedRequest{
		request: RecipeRequest{
			CourseTitle:  course.Title,
			GuestCount:   s.menu.GuestCount,
			Requirements: requirements,
		},
		courseID: *course.DBID,
	}, s.menu.UserID, nil
}

// menuGenerationMarker is the in-flight token value for whole-menu generation.
const menuGenerationMarker = "menu"

// GenerateMenuCourses saves the menu if needed, asks the generator for a
// course list matching the theme prompt, and appends each returned title as
// a new local course. Existing courses are never replaced here; that
// confirmation lives in the UI layer.
func (s *Store) GenerateMenuCourses(ctx context.Context, prompt string, courseCount int) ([]Course, error) {
	if err := s.acquireGeneration(menuGenerationMarker); err != nil {
		return nil, err
	}
	defer s.releaseGeneration()

	s.mu.Lock()
	if s.menu.PlanningComplete {
		s.mu.Unlock()
		return nil, ErrPlanningLocked
	}
	if s.menu.ID == nil {
		if err := s.saveLocked(ctx); err != nil {
			s.mu.Unlock()
			return nil, &PipelineError{Stage: StageEnsurePersisted, Err: err}
		}
	}
	req := MenuRequest{
		Prompt:      prompt,
		MenuName:    s.menu.Name,
		GuestCount:  s.menu.GuestCount,
		CourseCount: courseCount,
	}
	s.mu.Unlock()

	titles, err := s.gen.GenerateCourses(ctx, req)
	if err != nil {
		return nil, &PipelineError{Stage: StageGenerate, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := make([]Course, 0, len(titles))
	for _, title := range titles {
		course := NewCourse(title, "")
		course.Order = len(s.menu.Courses)
		s.menu.Courses = append(s.menu.Courses, course)
		added = append(added, course)
	}
	s.dirty = true
	s.notifyLocked()
	return added, nil
}
