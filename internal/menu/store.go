package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"menu-planner/internal/retry"
)

// State identifies where a menu editing session sits in its lifecycle.
type State string

const (
	// StateNew means the menu has never been persisted.
	StateNew State = "new"
	// StateSaved means the menu has an id and is editable.
	StateSaved State = "saved"
	// StatePlanningComplete locks the menu against course edits.
	StatePlanningComplete State = "planning_complete"
)

var (
	// ErrPlanningLocked is returned for course mutations on a completed menu.
	ErrPlanningLocked = errors.New("menu planning is complete; reopen it to edit")
	// ErrConfirmationRequired signals that the caller must confirm the transition.
	ErrConfirmationRequired = errors.New("explicit confirmation required")
	// ErrCourseNotFound is returned when a local id matches no course.
	ErrCourseNotFound = errors.New("course not found")
)

// Snapshot is an immutable view of the store handed to subscribers.
type Snapshot struct {
	Menu          Menu
	State         State
	Dirty         bool
	GeneratingFor string
}

// Store is an observable state container for the menu being edited. Course
// mutations are synchronous and local-only; nothing reaches the backend
// until an explicit or implicit save.
type Store struct {
	mu            sync.Mutex
	menu          Menu
	dirty         bool
	generatingFor string
	subscribers   []func(Snapshot)

	repo *Repository
	gen  Generator
}

// NewStore starts a fresh editing session for the user.
func NewStore(repo *Repository, gen Generator, userID string) *Store {
	return &Store{
		repo: repo,
		gen:  gen,
		menu: Menu{
			GuestCount: 1,
			PrepDays:   1,
			UserID:     userID,
		},
	}
}

// NewStoreFromMenu opens an existing menu for editing.
func NewStoreFromMenu(repo *Repository, gen Generator, m Menu) *Store {
	return &Store{repo: repo, gen: gen, menu: m}
}

// Subscribe registers fn to be called after every state change.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	m := s.menu
	m.Courses = append([]Course(nil), s.menu.Courses...)
	return Snapshot{
		Menu:          m,
		State:         s.stateLocked(),
		Dirty:         s.dirty,
		GeneratingFor: s.generatingFor,
	}
}

func (s *Store) stateLocked() State {
	switch {
	case s.menu.ID == nil:
		return StateNew
	case s.menu.PlanningComplete:
		return StatePlanningComplete
	default:
		return StateSaved
	}
}

// State reports the lifecycle state of the session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// notifyLocked must be called with the mutex held.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

// SetName updates the menu name locally.
func (s *Store) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return ErrPlanningLocked
	}
	s.menu.Name = name
	s.dirty = true
	s.notifyLocked()
	return nil
}

// SetGuestCount updates the guest count locally. Values below 1 are rejected
// before any persistence happens.
func (s *Store) SetGuestCount(n int) error {
	if n < 1 {
		return fmt.Errorf("guest count must be at least 1, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return ErrPlanningLocked
	}
	s.menu.GuestCount = n
	s.dirty = true
	s.notifyLocked()
	return nil
}

// SetPrepDays updates the prep days locally.
func (s *Store) SetPrepDays(n int) error {
	if n < 1 {
		return fmt.Errorf("prep days must be at least 1, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return ErrPlanningLocked
	}
	s.menu.PrepDays = n
	s.dirty = true
	s.notifyLocked()
	return nil
}

// AddCourse appends a new local course and returns it. No backend call.
func (s *Store) AddCourse(title, description string) (Course, error) {
	if strings.TrimSpace(title) == "" {
		return Course{}, fmt.Errorf("course title must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return Course{}, ErrPlanningLocked
	}

	course := NewCourse(title, description)
	course.Order = len(s.menu.Courses)
	s.menu.Courses = append(s.menu.Courses, course)
	s.dirty = true
	s.notifyLocked()
	return course, nil
}

// RemoveCourse deletes a local course by its stable local id.
func (s *Store) RemoveCourse(localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return ErrPlanningLocked
	}

	for i := range s.menu.Courses {
		if s.menu.Courses[i].LocalID == localID {
			s.menu.Courses = append(s.menu.Courses[:i], s.menu.Courses[i+1:]...)
			s.reorderLocked()
			s.dirty = true
			s.notifyLocked()
			return nil
		}
	}
	return ErrCourseNotFound
}

// UpdateCourse edits a course's title and description in place.
func (s *Store) UpdateCourse(localID, title, description string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("course title must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return ErrPlanningLocked
	}

	course := s.menu.CourseByLocalID(localID)
	if course == nil {
		return ErrCourseNotFound
	}
	course.Title = title
	course.Description = description
	s.dirty = true
	s.notifyLocked()
	return nil
}

// MoveCourse repositions a course; order values are reassigned from the
// resulting slice positions. The local id never changes.
func (s *Store) MoveCourse(localID string, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu.PlanningComplete {
		return ErrPlanningLocked
	}
	if newIndex < 0 || newIndex >= len(s.menu.Courses) {
		return fmt.Errorf("index %d out of range", newIndex)
	}

	from := -1
	for i := range s.menu.Courses {
		if s.menu.Courses[i].LocalID == localID {
			from = i
			break
		}
	}
	if from == -1 {
		return ErrCourseNotFound
	}

	course := s.menu.Courses[from]
	s.menu.Courses = append(s.menu.Courses[:from], s.menu.Courses[from+1:]...)
	s.menu.Courses = append(s.menu.Courses[:newIndex],
		append([]Course{course}, s.menu.Courses[newIndex:]...)...)
	s.reorderLocked()
	s.dirty = true
	s.notifyLocked()
	return nil
}

func (s *Store) reorderLocked() {
	for i := range s.menu.Courses {
		s.menu.Courses[i].Order = i
	}
}

// Save writes the menu and its courses through to the backend, retrying
// transient failures with backoff. Assigned ids are merged back into the
// in-memory state and the dirty flag is cleared.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	_, err := retry.Do(ctx, "save menu", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.SaveMenu(ctx, &s.menu)
	})
	if err != nil {
		return err
	}

	_, err = retry.Do(ctx, "save courses", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.SaveCourses(ctx, &s.menu)
	})
	if err != nil {
		return err
	}

	s.dirty = false
	s.notifyLocked()
	return nil
}

// CompletePlanning transitions saved → planning_complete. The menu needs at
// least one course and a non-blank name; when any course lacks a recipe the
// caller must pass confirmed=true.
func (s *Store) CompletePlanning(ctx context.Context, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.menu.Courses) == 0 {
		return fmt.Errorf("cannot complete planning without courses")
	}
	if strings.TrimSpace(s.menu.Name) == "" {
		return fmt.Errorf("cannot complete planning without a menu name")
	}
	if !confirmed {
		for _, c := range s.menu.Courses {
			if c.Recipe == nil {
				return fmt.Errorf("course %q has no recipe: %w", c.Title, ErrConfirmationRequired)
			}
		}
	}

	s.menu.PlanningComplete = true
	if err := s.saveLocked(ctx); err != nil {
		s.menu.PlanningComplete = false
		return err
	}
	return nil
}

// ReopenPlanning transitions planning_complete → saved after explicit user
// confirmation. Previously generated documents are considered stale and
// must be regenerated on the next completion.
func (s *Store) ReopenPlanning(ctx context.Context, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.menu.PlanningComplete {
		return nil
	}
	if !confirmed {
		return fmt.Errorf("reopening invalidates generated documents: %w", ErrConfirmationRequired)
	}

	s.menu.PlanningComplete = false
	if err := s.saveLocked(ctx); err != nil {
		s.menu.PlanningComplete = true
		return err
	}
	return nil
}

// Menu returns a copy of the current menu.
func (s *Store) Menu() Menu {
	return s.Snapshot().Menu
}

// Dirty reports whether local changes have not been saved.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
