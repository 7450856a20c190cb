package docs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"menu-planner/internal/llm"
	"menu-planner/internal/menu"
	"menu-planner/internal/metrics"
	"menu-planner/internal/retry"
	"menu-planner/internal/shared"
)

// Generator produces the supporting documents for a completed menu and
// writes them server-side. Documents are regenerated wholesale.
type Generator struct {
	textGen      llm.TextGenerator
	repo         *menu.Repository
	metricsStore *metrics.Store
}

// NewGenerator creates a document Generator. The metrics store may be nil.
func NewGenerator(textGen llm.TextGenerator, repo *menu.Repository, metricsStore *metrics.Store) *Generator {
	return &Generator{textGen: textGen, repo: repo, metricsStore: metricsStore}
}

// Request carries everything document generation needs.
type Request struct {
	MenuID     int64
	MenuName   string
	Courses    []menu.Course
	GuestCount int
	PrepDays   int
}

// prompted maps each LLM-backed document type to its prompt intro.
var prompted = []struct {
	docType menu.DocumentType
	brief   string
}{
	{menu.DocShoppingList, "Write a consolidated shopping list in markdown, grouped by store section (produce, meat and fish, dairy, pantry, other). Aggregate quantities across all courses."},
	{menu.DocMiseEnPlace, "Write a mise-en-place preparation plan in markdown, organised day by day across the available prep days, ending with the day of service. For each task name the course it belongs to."},
	{menu.DocServiceInstructions, "Write service instructions in markdown: plating notes, serving order, timing between courses, and temperature guidance for each course."},
}

// Generate produces and persists all documents for the menu. The combined
// recipes document is assembled locally; the rest come from the model.
func (g *Generator) Generate(ctx context.Context, req Request) error {
	if len(req.Courses) == 0 {
		return fmt.Errorf("menu has no courses to document")
	}

	menuContext := buildMenuContext(req)

	for _, p := range prompted {
		content, err := g.generateDocument(ctx, p.brief, menuContext)
		if err != nil {
			return fmt.Errorf("failed to generate %s: %w", p.docType, err)
		}
		doc := &menu.Document{MenuID: req.MenuID, Type: p.docType, Content: content}
		if err := g.repo.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to save %s: %w", p.docType, err)
		}
	}

	recipesDoc := &menu.Document{
		MenuID:  req.MenuID,
		Type:    menu.DocRecipes,
		Content: buildRecipesMarkdown(req),
	}
	if err := g.repo.SaveDocument(ctx, recipesDoc); err != nil {
		return fmt.Errorf("failed to save %s: %w", menu.DocRecipes, err)
	}

	return nil
}

func (g *Generator) generateDocument(ctx context.Context, brief, menuContext string) (string, error) {
	prompt := fmt.Sprintf(`
You are an experienced chef de cuisine preparing documentation for a dinner party.
%s

%s

Return plain markdown only. Do not wrap the response in code blocks.
`, brief, menuContext)

	start := time.Now()
	resp, err := retry.Do(ctx, "document generation", func(ctx context.Context) (llm.ContentResponse, error) {
		return g.textGen.GenerateContent(ctx, prompt)
	})
	if err != nil {
		return "", err
	}

	if g.metricsStore != nil {
		_ = g.metricsStore.RecordMeta(shared.AgentMeta{
			AgentName: "Documents",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		})
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("model returned an empty document")
	}
	return content, nil
}

func buildMenuContext(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Menu: %s\nGuests: %d\nPrep days: %d\n\nCourses:\n", req.MenuName, req.GuestCount, req.PrepDays)
	for i, c := range req.Courses {
		fmt.Fprintf(&sb, "%d. %s", i+1, c.Title)
		if c.Description != "" {
			fmt.Fprintf(&sb, " - %s", c.Description)
		}
		sb.WriteString("\n")
		if c.Recipe != nil {
			fmt.Fprintf(&sb, "   Ingredients: %s\n", strings.Join(c.Recipe.Ingredients, "; "))
			fmt.Fprintf(&sb, "   Prep: %d min, Cook: %d min\n", c.Recipe.PrepTimeMinutes, c.Recipe.CookTimeMinutes)
		}
	}
	return sb.String()
}

func buildRecipesMarkdown(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s - Recipes\n\n", req.MenuName)
	for _, c := range req.Courses {
		fmt.Fprintf(&sb, "## %s\n\n", c.Title)
		if c.Recipe == nil {
			sb.WriteString("_No recipe generated for this course._\n\n")
			continue
		}
		fmt.Fprintf(&sb, "Serves %d | Prep %d min | Cook %d min\n\n",
			c.Recipe.Servings, c.Recipe.PrepTimeMinutes, c.Recipe.CookTimeMinutes)
		sb.WriteString("### Ingredients\n\n")
		for _, ing := range c.Recipe.Ingredients {
			fmt.Fprintf(&sb, "- %s\n", ing)
		}
		sb.WriteString("\n### Instructions\n\n")
		for i, step := range c.Recipe.Instructions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
