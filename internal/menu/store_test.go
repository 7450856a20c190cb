package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"menu-planner/internal/database"
)

const testUserID = "user-1"

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	db.SQL.MustExec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		testUserID, "cook@example.com", "irrelevant", time.Now().UTC(),
	)
	return NewRepository(db.SQL)
}

// fakeGenerator implements Generator with canned responses.
type fakeGenerator struct {
	recipe     *Recipe
	recipeErr  error
	courses    []string
	coursesErr error

	recipeCalls int
	courseCalls int
}

func (f *fakeGenerator) GenerateRecipe(ctx context.Context, req RecipeRequest) (*Recipe, error) {
	f.recipeCalls++
	if f.recipeErr != nil {
		return nil, f.recipeErr
	}
	rec := *f.recipe
	return &rec, nil
}

func (f *fakeGenerator) GenerateCourses(ctx context.Context, req MenuRequest) ([]string, error) {
	f.courseCalls++
	if f.coursesErr != nil {
		return nil, f.coursesErr
	}
	return f.courses, nil
}

func TestStoreCourseMutationsAreLocal(t *testing.T) {
	store := NewStore(nil, nil, testUserID)

	t.Run("add assigns stable local id and position", func(t *testing.T) {
		starter, err := store.AddCourse("Scallop Crudo", "")
		if err != nil {
			t.Fatalf("AddCourse failed: %v", err)
		}
		if starter.LocalID == "" {
			t.Fatal("expected a local id on a new course")
		}
		if starter.DBID != nil {
			t.Fatal("a local course must not have a database id")
		}
		if starter.Order != 0 {
			t.Errorf("expected order 0, got %d", starter.Order)
		}
	})

	t.Run("add rejects blank titles", func(t *testing.T) {
		if _, err := store.AddCourse("   ", ""); err == nil {
			t.Fatal("expected error for blank title")
		}
	})

	t.Run("remove by local id", func(t *testing.T) {
		c, _ := store.AddCourse("Duck Breast", "")
		if err := store.RemoveCourse(c.LocalID); err != nil {
			t.Fatalf("RemoveCourse failed: %v", err)
		}
		if err := store.RemoveCourse(c.LocalID); !errors.Is(err, ErrCourseNotFound) {
			t.Errorf("expected ErrCourseNotFound, got %v", err)
		}
	})

	t.Run("move reassigns order but not identity", func(t *testing.T) {
		store := NewStore(nil, nil, testUserID)
		a, _ := store.AddCourse("Amuse", "")
		b, _ := store.AddCourse("Main", "")
		c, _ := store.AddCourse("Dessert", "")

		if err := store.MoveCourse(c.LocalID, 0); err != nil {
			t.Fatalf("MoveCourse failed: %v", err)
		}

		got := store.Menu().Courses
		wantOrder := []string{c.LocalID, a.LocalID, b.LocalID}
		for i, want := range wantOrder {
			if got[i].LocalID != want {
				t.Errorf("position %d: got %s, want %s", i, got[i].LocalID, want)
			}
			if got[i].Order != i {
				t.Errorf("position %d: order field is %d", i, got[i].Order)
			}
		}
	})

	t.Run("move rejects out of range index", func(t *testing.T) {
		store := NewStore(nil, nil, testUserID)
		c, _ := store.AddCourse("Solo", "")
		if err := store.MoveCourse(c.LocalID, 5); err == nil {
			t.Fatal("expected error for out of range index")
		}
	})
}

func TestStoreAddThenRemoveNeverPersists(t *testing.T) {
	repo := newTestRepo(t)
	store := NewStore(repo, nil, testUserID)
	store.SetName("Ephemeral")

	c, err := store.AddCourse("Short Lived", "")
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if err := store.RemoveCourse(c.LocalID); err != nil {
		t.Fatalf("RemoveCourse failed: %v", err)
	}

	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	saved, err := repo.Get(context.Background(), *store.Menu().ID, testUserID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(saved.Courses) != 0 {
		t.Errorf("expected no persisted courses, got %d", len(saved.Courses))
	}
}

func TestStoreState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	store := NewStore(repo, nil, testUserID)
	if got := store.State(); got != StateNew {
		t.Fatalf("expected state %q, got %q", StateNew, got)
	}

	store.SetName("Anniversary Dinner")
	if _, err := store.AddCourse("Beef Wellington", ""); err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if !store.Dirty() {
		t.Fatal("expected dirty after local edits")
	}

	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := store.State(); got != StateSaved {
		t.Fatalf("expected state %q, got %q", StateSaved, got)
	}
	if store.Dirty() {
		t.Fatal("expected clean after save")
	}

	if err := store.CompletePlanning(ctx, true); err != nil {
		t.Fatalf("CompletePlanning failed: %v", err)
	}
	if got := store.State(); got != StatePlanningComplete {
		t.Fatalf("expected state %q, got %q", StatePlanningComplete, got)
	}

	t.Run("completed menu rejects course edits", func(t *testing.T) {
		if _, err := store.AddCourse("Late Addition", ""); !errors.Is(err, ErrPlanningLocked) {
			t.Errorf("AddCourse: expected ErrPlanningLocked, got %v", err)
		}
		if err := store.SetGuestCount(12); !errors.Is(err, ErrPlanningLocked) {
			t.Errorf("SetGuestCount: expected ErrPlanningLocked, got %v", err)
		}
	})

	t.Run("reopen requires confirmation", func(t *testing.T) {
		if err := store.ReopenPlanning(ctx, false); !errors.Is(err, ErrConfirmationRequired) {
			t.Fatalf("expected ErrConfirmationRequired, got %v", err)
		}
		if err := store.ReopenPlanning(ctx, true); err != nil {
			t.Fatalf("confirmed reopen failed: %v", err)
		}
		if got := store.State(); got != StateSaved {
			t.Errorf("expected state %q after reopen, got %q", StateSaved, got)
		}
	})
}

func TestCompletePlanningValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("requires at least one course", func(t *testing.T) {
		store := NewStore(repo, nil, testUserID)
		store.SetName("Empty")
		if err := store.CompletePlanning(ctx, true); err == nil {
			t.Fatal("expected error completing an empty menu")
		}
	})

	t.Run("requires a name", func(t *testing.T) {
		store := NewStore(repo, nil, testUserID)
		store.AddCourse("Something", "")
		if err := store.CompletePlanning(ctx, true); err == nil {
			t.Fatal("expected error completing a nameless menu")
		}
	})

	t.Run("missing recipes need confirmation", func(t *testing.T) {
		store := NewStore(repo, nil, testUserID)
		store.SetName("Half Planned")
		store.AddCourse("No Recipe Yet", "")

		err := store.CompletePlanning(ctx, false)
		if !errors.Is(err, ErrConfirmationRequired) {
			t.Fatalf("expected ErrConfirmationRequired, got %v", err)
		}
		if store.State() == StatePlanningComplete {
			t.Fatal("menu must not complete without confirmation")
		}

		if err := store.CompletePlanning(ctx, true); err != nil {
			t.Fatalf("confirmed completion failed: %v", err)
		}
	})
}

func TestStoreSubscribers(t *testing.T) {
	store := NewStore(nil, nil, testUserID)

	var snaps []Snapshot
	store.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	store.SetName("Observed")
	c, _ := store.AddCourse("Watched Course", "")

	if len(snaps) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(snaps))
	}
	last := snaps[len(snaps)-1]
	if !last.Dirty {
		t.Error("snapshot should report dirty")
	}
	if last.Menu.Name != "Observed" {
		t.Errorf("snapshot name = %q", last.Menu.Name)
	}

	// Snapshots are copies; mutating one must not leak into the store.
	last.Menu.Courses[0].Title = "Tampered"
	current := store.Menu()
	if current.CourseByLocalID(c.LocalID).Title != "Watched Course" {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestMenuConfigDrift(t *testing.T) {
	m := Menu{GuestCount: 6, PrepDays: 2, Courses: make([]Course, 3)}
	if m.ConfigDrift() {
		t.Fatal("no drift expected before any generation")
	}

	m.OriginalConfig = &OriginalConfig{GuestCount: 6, PrepDays: 2, CourseCount: 3}
	if m.ConfigDrift() {
		t.Fatal("no drift expected when config matches the snapshot")
	}

	m.GuestCount = 8
	if !m.ConfigDrift() {
		t.Fatal("guest count change must register as drift")
	}
}
