package menu

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Row types mirror the storage representation; domain types never carry
// database tags directly.

type menuRow struct {
	ID               int64     `db:"id"`
	Name             string    `db:"name"`
	GuestCount       int       `db:"guest_count"`
	PrepDays         int       `db:"prep_days"`
	PlanningComplete bool      `db:"planning_complete"`
	UserID           string    `db:"user_id"`
	CreatedAt        time.Time `db:"created_at"`
}

type courseRow struct {
	ID          int64  `db:"id"`
	MenuID      int64  `db:"menu_id"`
	ClientKey   string `db:"client_key"`
	Title       string `db:"title"`
	Position    int    `db:"position"`
	Description string `db:"description"`
}

type recipeRow struct {
	ID              int64     `db:"id"`
	CourseID        int64     `db:"course_id"`
	CreatedBy       string    `db:"created_by"`
	Title           string    `db:"title"`
	Ingredients     string    `db:"ingredients"`
	Instructions    string    `db:"instructions"`
	PrepTimeMinutes int       `db:"prep_time_minutes"`
	CookTimeMinutes int       `db:"cook_time_minutes"`
	Servings        int       `db:"servings"`
	CreatedAt       time.Time `db:"created_at"`
}

type documentRow struct {
	ID           int64     `db:"id"`
	MenuID       int64     `db:"menu_id"`
	DocumentType string    `db:"document_type"`
	Content      string    `db:"content"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r recipeRow) toDomain() (*Recipe, error) {
	rec := &Recipe{
		ID:              r.ID,
		CourseID:        r.CourseID,
		CreatedBy:       r.CreatedBy,
		Title:           r.Title,
		PrepTimeMinutes: r.PrepTimeMinutes,
		CookTimeMinutes: r.CookTimeMinutes,
		Servings:        r.Servings,
		CreatedAt:       r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Ingredients), &rec.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients for recipe %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Instructions), &rec.Instructions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instructions for recipe %d: %w", r.ID, err)
	}
	return rec, nil
}

// Repository translates menu state into row operations. Each operation is
// independent and idempotent at the row level.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new menu Repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the user's menus ordered by creation time descending,
// courses and recipes attached. No menus is an empty slice, not an error.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Menu, error) {
	var rows []menuRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM menus WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}

	menus := make([]Menu, 0, len(rows))
	for _, row := range rows {
		m, err := r.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		menus = append(menus, *m)
	}
	return menus, nil
}

// Get retrieves a single menu owned by the user, or nil when not found.
func (r *Repository) Get(ctx context.Context, id int64, userID string) (*Menu, error) {
	var row menuRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM menus WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get menu %d: %w", id, err)
	}
	return r.hydrate(ctx, row)
}

func (r *Repository) hydrate(ctx context.Context, row menuRow) (*Menu, error) {
	id := row.ID
	m := &Menu{
		ID:               &id,
		Name:             row.Name,
		GuestCount:       row.GuestCount,
		PrepDays:         row.PrepDays,
		PlanningComplete: row.PlanningComplete,
		UserID:           row.UserID,
		CreatedAt:        row.CreatedAt,
	}

	var courseRows []courseRow
	err := r.db.SelectContext(ctx, &courseRows,
		`SELECT * FROM courses WHERE menu_id = ? ORDER BY position`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses for menu %d: %w", row.ID, err)
	}

	for _, cr := range courseRows {
		dbID := cr.ID
		course := Course{
			LocalID:     cr.ClientKey,
			DBID:        &dbID,
			Title:       cr.Title,
			Order:       cr.Position,
			Description: cr.Description,
		}

		var rr recipeRow
		err := r.db.GetContext(ctx, &rr, `SELECT * FROM recipes WHERE course_id = ?`, cr.ID)
		if err == nil {
			rec, err := rr.toDomain()
			if err != nil {
				return nil, err
			}
			course.Recipe = rec
		} else if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to load recipe for course %d: %w", cr.ID, err)
		}

		m.Courses = append(m.Courses, course)
	}

	return m, nil
}

// SaveMenu upserts the menu row keyed by its optional id: insert when
// absent, update in place otherwise. The name is trimmed and a blank name
// is coerced to the placeholder.
func (r *Repository) SaveMenu(ctx context.Context, m *Menu) error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = Untitled
	}
	m.Name = name

	if m.GuestCount < 1 {
		return fmt.Errorf("guest count must be at least 1, got %d", m.GuestCount)
	}
	if m.PrepDays < 1 {
		return fmt.Errorf("prep days must be at least 1, got %d", m.PrepDays)
	}

	if m.ID == nil {
		m.CreatedAt = time.Now().UTC()
		result, err := r.db.ExecContext(ctx,
			`INSERT INTO menus (name, guest_count, prep_days, planning_complete, user_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.Name, m.GuestCount, m.PrepDays, m.PlanningComplete, m.UserID, m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert menu: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read menu id: %w", err)
		}
		m.ID = &id
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE menus SET name = ?, guest_count = ?, prep_days = ?, planning_complete = ? WHERE id = ?`,
		m.Name, m.GuestCount, m.PrepDays, m.PlanningComplete, *m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update menu %d: %w", *m.ID, err)
	}
	return nil
}

// SaveCourses synchronizes the course rows with the in-memory list inside a
// single transaction. Course identity is stable: rows are keyed by the
// durable client key, so recipe rows survive resaves. Rows whose key is no
// longer present are deleted; position mirrors slice order. Assigned ids
// are written back into the courses.
func (r *Repository) SaveCourses(ctx context.Context, m *Menu) error {
	if m.ID == nil {
		return fmt.Errorf("cannot save courses for an unsaved menu")
	}
	menuID := *m.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing []courseRow
	if err := tx.SelectContext(ctx, &existing,
		`SELECT * FROM courses WHERE menu_id = ?`, menuID); err != nil {
		return fmt.Errorf("failed to load existing courses: %w", err)
	}

	existingByKey := make(map[string]int64, len(existing))
	for _, row := range existing {
		existingByKey[row.ClientKey] = row.ID
	}

	keep := make(map[string]bool, len(m.Courses))
	for i := range m.Courses {
		course := &m.Courses[i]
		course.Order = i
		keep[course.LocalID] = true

		if dbID, ok := existingByKey[course.LocalID]; ok {
			if _, err := tx.ExecContext(ctx,
				`UPDATE courses SET title = ?, position = ?, description = ? WHERE id = ?`,
				course.Title, course.Order, course.Description, dbID,
			); err != nil {
				return fmt.Errorf("failed to update course %q: %w", course.Title, err)
			}
			id := dbID
			course.DBID = &id
			continue
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO courses (menu_id, client_key, title, position, description)
			 VALUES (?, ?, ?, ?, ?)`,
			menuID, course.LocalID, course.Title, course.Order, course.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert course %q: %w", course.Title, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read course id: %w", err)
		}
		course.DBID = &id
	}

	for _, row := range existing {
		if keep[row.ClientKey] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, row.ID); err != nil {
			return fmt.Errorf("failed to delete removed course %d: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit course save: %w", err)
	}
	return nil
}

// SaveRecipe replaces any previous recipe for the course and inserts the
// new row. Regeneration is a full replace, never an edit.
func (r *Repository) SaveRecipe(ctx context.Context, rec *Recipe) error {
	ingredients, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructions, err := json.Marshal(rec.Instructions)
	if err != nil {
		return fmt.Errorf("failed to marshal instructions: %w", err)
	}

	rec.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE course_id = ?`, rec.CourseID); err != nil {
		return fmt.Errorf("failed to clear previous recipe: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO recipes (course_id, created_by, title, ingredients, instructions,
		                      prep_time_minutes, cook_time_minutes, servings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CourseID, rec.CreatedBy, rec.Title, string(ingredients), string(instructions),
		rec.PrepTimeMinutes, rec.CookTimeMinutes, rec.Servings, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read recipe id: %w", err)
	}
	rec.ID = id

	return tx.Commit()
}

// SaveDocument upserts the document for its (menu, type) pair.
func (r *Repository) SaveDocument(ctx context.Context, doc *Document) error {
	now := time.Now().UTC()
	doc.UpdatedAt = now

	var existing documentRow
	err := r.db.GetContext(ctx, &existing,
		`SELECT * FROM menu_documents WHERE menu_id = ? AND document_type = ?`,
		doc.MenuID, string(doc.Type))
	if err == nil {
		_, err = r.db.ExecContext(ctx,
			`UPDATE menu_documents SET content = ?, updated_at = ? WHERE id = ?`,
			doc.Content, doc.UpdatedAt, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up document: %w", err)
	}

	doc.CreatedAt = now
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO menu_documents (menu_id, document_type, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.MenuID, string(doc.Type), doc.Content, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	doc.ID, _ = result.LastInsertId()
	return nil
}

// ListDocuments returns all documents for the menu.
func (r *Repository) ListDocuments(ctx context.Context, menuID int64) ([]Document, error) {
	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM menu_documents WHERE menu_id = ? ORDER BY document_type`, menuID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{
			ID:        row.ID,
			MenuID:    row.MenuID,
			Type:      DocumentType(row.DocumentType),
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return docs, nil
}

// DeleteMenu removes the menu and everything belonging to it: courses (and
// their recipes via the foreign key), then documents, then the menu row.
// The cascade is manual and ordered; a failure at an earlier step stops the
// later deletions from running.
func (r *Repository) DeleteMenu(ctx context.Context, id int64, userID string) error {
	var owner string
	err := r.db.GetContext(ctx, &owner, `SELECT user_id FROM menus WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("menu %d not found", id)
		}
		return fmt.Errorf("failed to look up menu %d: %w", id, err)
	}
	if owner != userID {
		return fmt.Errorf("menu %d not found", id)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE menu_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete courses for menu %d: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM menu_documents WHERE menu_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete documents for menu %d: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM menus WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete menu %d: %w", id, err)
	}
	return nil
}
