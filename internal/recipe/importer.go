package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"menu-planner/internal/backend"
	"menu-planner/internal/llm"
	"menu-planner/internal/menu"
)

// Importer extracts recipes from external web pages so a course can carry a
// clipped recipe instead of a generated one. Fetched page text is cached so
// re-imports of the same URL skip the network.
type Importer struct {
	textGen    llm.TextGenerator
	httpClient *http.Client
	cache      *backend.FileStore
}

// NewImporter creates a new Importer. A nil HTTP client falls back to a
// plain 15s-timeout client; a nil cache disables page caching.
func NewImporter(textGen llm.TextGenerator, httpClient *http.Client, cache *backend.FileStore) *Importer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Importer{textGen: textGen, httpClient: httpClient, cache: cache}
}

// ImportFromURL fetches the page, strips noise, and asks the model to
// extract a structured recipe scaled to the guest count.
func (im *Importer) ImportFromURL(ctx context.Context, url string, guestCount int) (*menu.Recipe, error) {
	content, err := im.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page content
and scale the ingredient quantities to serve exactly %d guests.
Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "ingredients": ["quantity + ingredient", ...],
  "instructions": ["Step 1 description", "Step 2 description", ...],
  "prep_time_minutes": 30,
  "cook_time_minutes": 45,
  "servings": %d
}

Return ONLY the raw JSON string. Do not wrap the response in markdown code blocks.

Page Content:
%s
`, guestCount, guestCount, content)

	resp, err := im.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}

	var extracted generatedRecipe
	cleaned := CleanJSONResponse(resp.Content)
	if err := json.Unmarshal([]byte(cleaned), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, resp.Content)
	}

	if extracted.Title == "" || len(extracted.Ingredients) == 0 {
		return nil, fmt.Errorf("no recipe found at %s", url)
	}

	rec := &menu.Recipe{
		Title:           extracted.Title,
		Ingredients:     extracted.Ingredients,
		Instructions:    extracted.Instructions,
		PrepTimeMinutes: extracted.PrepTimeMinutes,
		CookTimeMinutes: extracted.CookTimeMinutes,
		Servings:        guestCount,
	}
	rec.ClampTimes()
	return rec, nil
}

func (im *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	cacheKey := "menuplanner.import." + url
	if im.cache != nil {
		if cached := im.cache.Get(cacheKey); cached != "" {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	if im.cache != nil {
		im.cache.Set(cacheKey, text)
	}
	return text, nil
}
