package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"menu-planner/internal/llm"
	"menu-planner/internal/menu"
	"menu-planner/internal/metrics"
	"menu-planner/internal/retry"
)

// generationRetries bounds the internal retry loop around LLM calls.
const generationRetries = 2

// promptTokenAlertLimit flags prompts that have grown far past the size any
// menu in the product should produce.
const promptTokenAlertLimit = 8000

// Alerter receives operational alerts about generation calls.
type Alerter interface {
	AlertTokenBloat(agent, model string, promptTokens int)
}

// Generator produces recipes and course lists via a text generator.
// It implements menu.Generator.
type Generator struct {
	textGen      llm.TextGenerator
	metricsStore *metrics.Store
	alerter      Alerter
}

// NewGenerator creates a new Generator. The metrics store and alerter may
// both be nil.
func NewGenerator(textGen llm.TextGenerator, metricsStore *metrics.Store, alerter Alerter) *Generator {
	return &Generator{textGen: textGen, metricsStore: metricsStore, alerter: alerter}
}

// generatedRecipe mirrors the JSON shape the model is asked to produce.
type generatedRecipe struct {
	Title           string   `json:"title"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	PrepTimeMinutes int      `json:"prep_time_minutes"`
	CookTimeMinutes int      `json:"cook_time_minutes"`
	Servings        int      `json:"servings"`
}

// GenerateRecipe asks the model for a structured recipe for the course.
// Timing fields outside the accepted range are clamped to the default and
// servings always equals the guest count at generation time.
func (g *Generator) GenerateRecipe(ctx context.Context, req menu.RecipeRequest) (*menu.Recipe, error) {
	requirements := strings.TrimSpace(req.Requirements)
	if requirements == "" {
		requirements = "None"
	}

	prompt := fmt.Sprintf(`
You are a professional chef writing recipes for a dinner party menu.
Write a complete recipe for the course below, scaled exactly to the guest count.

Course: %s
Guests: %d
Additional requirements: %s

Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "ingredients": ["quantity + ingredient", ...],
  "instructions": ["Step 1 description", "Step 2 description", ...],
  "prep_time_minutes": 30,
  "cook_time_minutes": 45,
  "servings": %d
}

Ensure the output is valid JSON. Do not include any other text in your response.
Return ONLY the raw JSON string. Do not wrap the response in markdown code blocks.
`, req.CourseTitle, req.GuestCount, requirements, req.GuestCount)

	var generated generatedRecipe
	if err := g.generateJSON(ctx, "Recipe", prompt, &generated); err != nil {
		return nil, err
	}

	if generated.Title == "" || len(generated.Ingredients) == 0 || len(generated.Instructions) == 0 {
		return nil, fmt.Errorf("model returned an incomplete recipe for %q", req.CourseTitle)
	}

	rec := &menu.Recipe{
		Title:           generated.Title,
		Ingredients:     generated.Ingredients,
		Instructions:    generated.Instructions,
		PrepTimeMinutes: generated.PrepTimeMinutes,
		CookTimeMinutes: generated.CookTimeMinutes,
		Servings:        req.GuestCount,
	}
	rec.ClampTimes()
	return rec, nil
}

// GenerateCourses asks the model for a course list matching the theme prompt.
func (g *Generator) GenerateCourses(ctx context.Context, req menu.MenuRequest) ([]string, error) {
	courseCount := req.CourseCount
	if courseCount < 1 {
		courseCount = 3
	}

	prompt := fmt.Sprintf(`
You are a professional chef designing a dinner party menu named "%s" for %d guests.
Theme and wishes from the host: %s

Propose exactly %d courses in serving order.
Return the result strictly as a JSON object with this structure:
{
  "courses": [
    {"title": "Course name"},
    ...
  ]
}

Ensure the output is valid JSON. Do not include any other text in your response.
Return ONLY the raw JSON string. Do not wrap the response in markdown code blocks.
`, req.MenuName, req.GuestCount, req.Prompt, courseCount)

	var payload struct {
		Courses []struct {
			Title string `json:"title"`
		} `json:"courses"`
	}
	if err := g.generateJSON(ctx, "Menu", prompt, &payload); err != nil {
		return nil, err
	}

	if len(payload.Courses) == 0 {
		return nil, fmt.Errorf("model returned no courses")
	}

	titles := make([]string, 0, len(payload.Courses))
	for _, c := range payload.Courses {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		titles = append(titles, title)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("model returned only blank course titles")
	}
	return titles, nil
}

// generateJSON runs the text generator with a bounded retry loop, cleans
// the response, and unmarshals it into dest.
func (g *Generator) generateJSON(ctx context.Context, agentName, prompt string, dest any) error {
	resp, err := retry.Do(ctx, agentName+" generation", func(ctx context.Context) (llm.ContentResponse, error) {
		return g.textGen.GenerateContent(ctx, prompt)
	}, retry.WithMaxRetries(generationRetries))
	if err != nil {
		return fmt.Errorf("failed to get LLM response: %w", err)
	}

	if g.metricsStore != nil {
		if err := g.metricsStore.RecordUsage(agentName, resp.Usage); err != nil {
			// Metrics are best-effort; generation should not fail on them.
			log.Printf("failed to record metrics for %s: %v", agentName, err)
		}
	}
	if g.alerter != nil && resp.Usage.PromptTokens >= promptTokenAlertLimit {
		g.alerter.AlertTokenBloat(agentName, resp.Usage.Model, resp.Usage.PromptTokens)
	}

	cleaned := CleanJSONResponse(resp.Content)
	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		return fmt.Errorf("failed to unmarshal LLM response: %w. LLM Response: %s", err, resp.Content)
	}
	return nil
}

// CleanJSONResponse strips markdown code fences and any text surrounding
// the outermost JSON value. Models occasionally ignore formatting
// instructions; downstream parsing should not pay for that.
func CleanJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end > start {
		return s[start : end+1]
	}
	return s
}
