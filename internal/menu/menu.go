package menu

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType discriminates the generated supporting documents for a menu.
type DocumentType string

const (
	DocMiseEnPlace         DocumentType = "mise_en_place"
	DocServiceInstructions DocumentType = "service_instructions"
	DocShoppingList        DocumentType = "shopping_list"
	DocRecipes             DocumentType = "recipes"
)

// DocumentTypes lists every document produced for a completed menu.
var DocumentTypes = []DocumentType{
	DocMiseEnPlace,
	DocServiceInstructions,
	DocShoppingList,
	DocRecipes,
}

const (
	// Untitled replaces a blank menu name at save time.
	Untitled = "Untitled"

	// Recipe timing fields outside [MinRecipeMinutes, MaxRecipeMinutes]
	// are clamped to DefaultRecipeMinutes instead of being rejected.
	MinRecipeMinutes     = 5
	MaxRecipeMinutes     = 180
	DefaultRecipeMinutes = 30
)

// Recipe is structured cooking instructions generated for a single course.
// Immutable once saved except by full regeneration.
type Recipe struct {
	ID              int64     `json:"id"`
	CourseID        int64     `json:"course_id"`
	CreatedBy       string    `json:"created_by"`
	Title           string    `json:"title"`
	Ingredients     []string  `json:"ingredients"`
	Instructions    []string  `json:"instructions"`
	PrepTimeMinutes int       `json:"prep_time_minutes"`
	CookTimeMinutes int       `json:"cook_time_minutes"`
	Servings        int       `json:"servings"`
	CreatedAt       time.Time `json:"created_at"`
}

// ClampTimes forces the timing fields into the accepted range, replacing
// out-of-range values with the default rather than rejecting the recipe.
func (r *Recipe) ClampTimes() {
	r.PrepTimeMinutes = clampMinutes(r.PrepTimeMinutes)
	r.CookTimeMinutes = clampMinutes(r.CookTimeMinutes)
}

func clampMinutes(v int) int {
	if v < MinRecipeMinutes || v > MaxRecipeMinutes {
		return DefaultRecipeMinutes
	}
	return v
}

// Course is one dish slot within a menu. LocalID is a client-generated
// handle that stays stable across every local mutation; DBID is assigned
// only once the course has been persisted.
type Course struct {
	LocalID     string  `json:"local_id"`
	DBID        *int64  `json:"db_id,omitempty"`
	Title       string  `json:"title"`
	Order       int     `json:"order"`
	Description string  `json:"description,omitempty"`
	Recipe      *Recipe `json:"recipe,omitempty"`
}

// NewCourse creates a local, unpersisted course with a fresh LocalID.
func NewCourse(title, description string) Course {
	return Course{
		LocalID:     uuid.New().String(),
		Title:       title,
		Description: description,
	}
}

// OriginalConfig snapshots the menu shape at the last generation, used to
// detect drift between generated recipes and the current configuration.
type OriginalConfig struct {
	GuestCount  int `json:"guest_count"`
	PrepDays    int `json:"prep_days"`
	CourseCount int `json:"course_count"`
}

// Menu is a named collection of courses planned for a guest count and prep
// timeline. ID is nil until the first save.
type Menu struct {
	ID               *int64          `json:"id,omitempty"`
	Name             string          `json:"name"`
	GuestCount       int             `json:"guest_count"`
	PrepDays         int             `json:"prep_days"`
	Courses          []Course        `json:"courses"`
	PlanningComplete bool            `json:"planning_complete"`
	UserID           string          `json:"user_id"`
	CreatedAt        time.Time       `json:"created_at"`
	OriginalConfig   *OriginalConfig `json:"original_config,omitempty"`
}

// Generated reports whether any course carries a generated recipe.
func (m *Menu) Generated() bool {
	for _, c := range m.Courses {
		if c.Recipe != nil {
			return true
		}
	}
	return false
}

// ConfigDrift reports whether guest count, prep days, or course count have
// changed since the last generation.
func (m *Menu) ConfigDrift() bool {
	if m.OriginalConfig == nil {
		return false
	}
	return m.OriginalConfig.GuestCount != m.GuestCount ||
		m.OriginalConfig.PrepDays != m.PrepDays ||
		m.OriginalConfig.CourseCount != len(m.Courses)
}

// CourseByLocalID returns a pointer into the course slice, or nil.
func (m *Menu) CourseByLocalID(localID string) *Course {
	for i := range m.Courses {
		if m.Courses[i].LocalID == localID {
			return &m.Courses[i]
		}
	}
	return nil
}

// Document is a generated supporting text (shopping list, prep plan,
// service notes) for a menu. Regenerated wholesale, never edited in place.
type Document struct {
	ID        int64        `json:"id"`
	MenuID    int64        `json:"menu_id"`
	Type      DocumentType `json:"document_type"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
