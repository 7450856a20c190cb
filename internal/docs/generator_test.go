package docs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"menu-planner/internal/database"
	"menu-planner/internal/llm"
	"menu-planner/internal/menu"
)

type fakeTextGen struct {
	content string
	err     error
	calls   int
}

func (f *fakeTextGen) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return llm.ContentResponse{}, f.err
	}
	return llm.ContentResponse{Content: f.content}, nil
}

func setupMenu(t *testing.T) (*menu.Repository, Request) {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SQL.MustExec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		"user-1", "cook@example.com", "irrelevant", time.Now().UTC(),
	)

	repo := menu.NewRepository(db.SQL)
	m := &menu.Menu{Name: "Winter Feast", GuestCount: 8, PrepDays: 2, UserID: "user-1",
		Courses: []menu.Course{menu.NewCourse("Venison", "")}}
	if err := repo.SaveMenu(context.Background(), m); err != nil {
		t.Fatalf("SaveMenu failed: %v", err)
	}
	if err := repo.SaveCourses(context.Background(), m); err != nil {
		t.Fatalf("SaveCourses failed: %v", err)
	}

	m.Courses[0].Recipe = &menu.Recipe{
		Title:           "Venison Loin",
		Ingredients:     []string{"2kg venison loin", "juniper berries"},
		Instructions:    []string{"Sear.", "Rest."},
		PrepTimeMinutes: 30,
		CookTimeMinutes: 25,
		Servings:        8,
	}

	return repo, Request{
		MenuID:     *m.ID,
		MenuName:   m.Name,
		Courses:    m.Courses,
		GuestCount: m.GuestCount,
		PrepDays:   m.PrepDays,
	}
}

func TestGenerateWritesAllDocuments(t *testing.T) {
	repo, req := setupMenu(t)
	tg := &fakeTextGen{content: "# Generated Document\n\nContent."}
	gen := NewGenerator(tg, repo, nil)

	if err := gen.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Three documents come from the model; the combined recipes document
	// is assembled locally.
	if tg.calls != 3 {
		t.Errorf("model calls = %d, want 3", tg.calls)
	}

	docs, err := repo.ListDocuments(context.Background(), req.MenuID)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != len(menu.DocumentTypes) {
		t.Fatalf("documents = %d, want %d", len(docs), len(menu.DocumentTypes))
	}

	byType := make(map[menu.DocumentType]menu.Document, len(docs))
	for _, d := range docs {
		byType[d.Type] = d
	}
	for _, dt := range menu.DocumentTypes {
		if _, ok := byType[dt]; !ok {
			t.Errorf("missing document %q", dt)
		}
	}

	recipes := byType[menu.DocRecipes]
	if !strings.Contains(recipes.Content, "Venison Loin") {
		t.Error("recipes document should embed the course recipe")
	}
	if !strings.Contains(recipes.Content, "Winter Feast") {
		t.Error("recipes document should carry the menu name")
	}
}

func TestGenerateRequiresCourses(t *testing.T) {
	repo, req := setupMenu(t)
	req.Courses = nil
	gen := NewGenerator(&fakeTextGen{content: "x"}, repo, nil)

	if err := gen.Generate(context.Background(), req); err == nil {
		t.Fatal("expected error for a menu without courses")
	}
}

func TestGenerateSurfacesModelFailure(t *testing.T) {
	repo, req := setupMenu(t)
	cause := errors.New("model offline")
	gen := NewGenerator(&fakeTextGen{err: cause}, repo, nil)

	err := gen.Generate(context.Background(), req)
	if !errors.Is(err, cause) {
		t.Fatalf("expected the model error, got %v", err)
	}

	docs, listErr := repo.ListDocuments(context.Background(), req.MenuID)
	if listErr != nil {
		t.Fatalf("ListDocuments failed: %v", listErr)
	}
	if len(docs) != 0 {
		t.Errorf("no documents should be written when the first generation fails, got %d", len(docs))
	}
}

func TestRecipesMarkdownMarksMissingRecipes(t *testing.T) {
	_, req := setupMenu(t)
	req.Courses = append(req.Courses, menu.NewCourse("Mystery Course", ""))

	md := buildRecipesMarkdown(req)
	if !strings.Contains(md, "Mystery Course") {
		t.Error("courses without recipes still appear in the document")
	}
	if !strings.Contains(md, "No recipe generated") {
		t.Error("missing recipes should be called out")
	}
}
