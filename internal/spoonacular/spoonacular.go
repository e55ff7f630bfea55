package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"balanced-bowl/internal/config"
	"balanced-bowl/internal/recipe"

	"golang.org/x/time/rate"
)

const (
	searchPageSize      = 12
	defaultRandomCount  = 6
	defaultIngredientsN = 10
)

// ErrFetchFailed is returned, wrapped, for every failed provider request.
var ErrFetchFailed = errors.New("spoonacular request failed")

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spoonacular api error: status=%d message=%s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrFetchFailed
}

// SearchResult is a page of recipe search results.
type SearchResult struct {
	Results      []recipe.Summary `json:"results"`
	Offset       int              `json:"offset"`
	Number       int              `json:"number"`
	TotalResults int              `json:"totalResults"`
}

// ProductResult is a page of grocery product search results.
type ProductResult struct {
	Products      []recipe.Product `json:"products"`
	TotalProducts int              `json:"totalProducts"`
}

// IngredientQuery describes a search by ingredients on hand.
type IngredientQuery struct {
	Ingredients []string
	Number      int
	Diet        string
	Cuisine     string
}

// Client is an interface for the Spoonacular food API.
type Client interface {
	SearchRecipes(ctx context.Context, query, diet string, offset int) (*SearchResult, error)
	FindByIngredients(ctx context.Context, q IngredientQuery) ([]recipe.Summary, error)
	GetRecipe(ctx context.Context, id int64) (*recipe.Recipe, error)
	RandomRecipes(ctx context.Context, count int) ([]recipe.Recipe, error)
	SearchProducts(ctx context.Context, query string) (*ProductResult, error)
}

// spoonacularClient is the concrete implementation of the Spoonacular API client.
type spoonacularClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a new Spoonacular API client.
// Requests are limited to cfg.SpoonacularRPS per second; zero disables the limit.
func NewClient(cfg *config.Config) Client {
	limit := rate.Inf
	if cfg.SpoonacularRPS > 0 {
		limit = rate.Limit(cfg.SpoonacularRPS)
	}
	return &spoonacularClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(cfg.SpoonacularBaseURL, "/"),
		apiKey:     cfg.SpoonacularAPIKey,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// SearchRecipes runs a free-text recipe search, optionally filtered by diet.
func (c *spoonacularClient) SearchRecipes(ctx context.Context, query, diet string, offset int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("number", strconv.Itoa(searchPageSize))
	params.Set("addRecipeInformation", "true")
	if diet != "" {
		params.Set("diet", diet)
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var result SearchResult
	if err := c.get(ctx, "/recipes/complexSearch", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindByIngredients ranks recipes by how many of the given ingredients they use.
// A diet or cuisine filter switches to complex search, which supports both.
func (c *spoonacularClient) FindByIngredients(ctx context.Context, q IngredientQuery) ([]recipe.Summary, error) {
	number := q.Number
	if number <= 0 {
		number = defaultIngredientsN
	}
	ingredients := strings.Join(q.Ingredients, ",")

	params := url.Values{}
	params.Set("number", strconv.Itoa(number))

	if q.Diet == "" && q.Cuisine == "" {
		params.Set("ingredients", ingredients)
		params.Set("ranking", "1")
		params.Set("ignorePantry", "true")

		var results []recipe.Summary
		if err := c.get(ctx, "/recipes/findByIngredients", params, &results); err != nil {
			return nil, err
		}
		return results, nil
	}

	params.Set("includeIngredients", ingredients)
	params.Set("sort", "max-used-ingredients")
	params.Set("addRecipeInformation", "true")
	params.Set("fillIngredients", "true")
	if q.Diet != "" {
		params.Set("diet", q.Diet)
	}
	if q.Cuisine != "" {
		params.Set("cuisine", q.Cuisine)
	}

	var result SearchResult
	if err := c.get(ctx, "/recipes/complexSearch", params, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// GetRecipe fetches full recipe information including nutrition.
func (c *spoonacularClient) GetRecipe(ctx context.Context, id int64) (*recipe.Recipe, error) {
	params := url.Values{}
	params.Set("includeNutrition", "true")

	var rec recipe.Recipe
	if err := c.get(ctx, fmt.Sprintf("/recipes/%d/information", id), params, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RandomRecipes fetches count random recipes, six when count is not positive.
func (c *spoonacularClient) RandomRecipes(ctx context.Context, count int) ([]recipe.Recipe, error) {
	if count <= 0 {
		count = defaultRandomCount
	}
	params := url.Values{}
	params.Set("number", strconv.Itoa(count))
	params.Set("includeNutrition", "true")

	var resp struct {
		Recipes []recipe.Recipe `json:"recipes"`
	}
	if err := c.get(ctx, "/recipes/random", params, &resp); err != nil {
		return nil, err
	}
	return resp.Recipes, nil
}

// SearchProducts searches packaged grocery products.
func (c *spoonacularClient) SearchProducts(ctx context.Context, query string) (*ProductResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("number", strconv.Itoa(searchPageSize))

	var result ProductResult
	if err := c.get(ctx, "/food/products/search", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *spoonacularClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", ErrFetchFailed, err)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	// Header auth keeps the key out of URLs that end up in error messages.
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "An API error occurred"}
		var body struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Message != "" {
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrFetchFailed, err)
	}
	return nil
}
