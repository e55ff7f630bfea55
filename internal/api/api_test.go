package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"balanced-bowl/internal/app"
	"balanced-bowl/internal/assistant"
	"balanced-bowl/internal/auth"
	"balanced-bowl/internal/database"
	"balanced-bowl/internal/llm"
	"balanced-bowl/internal/metrics"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/rating"
	"balanced-bowl/internal/recipe"
	"balanced-bowl/internal/spoonacular"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRecipes struct {
	recipes map[int64]recipe.Recipe
}

func (m *mockRecipes) SearchRecipes(ctx context.Context, query, diet string, offset int) (*spoonacular.SearchResult, error) {
	if query == "broken" {
		return nil, &spoonacular.APIError{StatusCode: 500, Message: "An API error occurred"}
	}
	return &spoonacular.SearchResult{
		Results:      []recipe.Summary{{ID: 1, Title: "Pancakes", HealthScore: 80}},
		Offset:       offset,
		Number:       12,
		TotalResults: 1,
	}, nil
}

func (m *mockRecipes) FindByIngredients(ctx context.Context, q spoonacular.IngredientQuery) ([]recipe.Summary, error) {
	return []recipe.Summary{{ID: 1, Title: "Pancakes", UsedIngredientCount: len(q.Ingredients)}}, nil
}

func (m *mockRecipes) GetRecipe(ctx context.Context, id int64) (*recipe.Recipe, error) {
	rec, ok := m.recipes[id]
	if !ok {
		return nil, &spoonacular.APIError{StatusCode: 404, Message: "recipe not found"}
	}
	return &rec, nil
}

func (m *mockRecipes) RandomRecipes(ctx context.Context, count int) ([]recipe.Recipe, error) {
	return []recipe.Recipe{m.recipes[1]}, nil
}

func (m *mockRecipes) SearchProducts(ctx context.Context, query string) (*spoonacular.ProductResult, error) {
	return &spoonacular.ProductResult{Products: []recipe.Product{{ID: 9, Title: "Oat Milk"}}, TotalProducts: 1}, nil
}

type mockChat struct{}

func (mockChat) Chat(ctx context.Context, system string, history []llm.ChatMessage, message string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: "Try adding lemon. (" + message + ")"}, nil
}

type mockSpeech struct{}

func (mockSpeech) Synthesize(ctx context.Context, text string) (llm.SpeechResponse, error) {
	return llm.SpeechResponse{PCM: []byte{1, 0, 2, 0}}, nil
}

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	recipes := &mockRecipes{recipes: map[int64]recipe.Recipe{
		1: {
			ID: 1, Title: "Pancakes", HealthScore: 80,
			ExtendedIngredients: []recipe.Ingredient{
				{Name: "flour", Original: "2 cups flour", Amount: 2, Unit: "cups", Aisle: "Baking"},
			},
			AnalyzedInstructions: []recipe.AnalyzedInstruction{{Steps: []recipe.Step{
				{Number: 1, Step: "Mix the batter.", Equipment: []recipe.StepItem{{Name: "bowl"}}},
				{Number: 2, Step: "Fry in a pan."},
			}}},
		},
		2: {ID: 2, Title: "Toast"},
	}}

	collectors := metrics.NewCollectors(nil)
	sessions := app.NewSessions(nil, collectors)
	t.Cleanup(sessions.Close)

	a := app.NewApp(
		recipes,
		rating.NewAggregator(db.SQL),
		sessions,
		assistant.New(mockChat{}, mockSpeech{}),
		metrics.NewStore(db.SQL),
	)
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	srv := NewServer(a, jwt, collectors, t.TempDir())

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	env := &testEnv{t: t, server: ts}

	resp, err := http.Post(ts.URL+"/api/v1/session", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.UserID)
	env.token = session.Token
	return env
}

func (e *testEnv) do(method, path string, body any) *http.Response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) state(resp *http.Response) planner.AppState {
	e.t.Helper()
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	var s planner.AppState
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/planner")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/planner", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/v1/planner", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlannerEndpoints(t *testing.T) {
	env := newTestEnv(t)

	s := env.state(env.do(http.MethodPut, "/api/v1/planner/monday/dinner", assignRequest{RecipeID: 1}))
	require.Len(t, s.PlannedMeals, 1)
	assert.Equal(t, planner.Monday, s.PlannedMeals[0].Day)
	assert.Equal(t, "Pancakes", s.PlannedMeals[0].Recipe.Title)
	assert.Equal(t, 4.0, s.PlannedMeals[0].Recipe.AverageRating)

	resp := env.do(http.MethodPut, "/api/v1/planner/funday/dinner", assignRequest{RecipeID: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodPut, "/api/v1/planner/monday/dinner", assignRequest{RecipeID: 404})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(http.MethodPut, "/api/v1/planner/monday/dinner", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	s = env.state(env.do(http.MethodDelete, "/api/v1/planner/Monday/dinner", nil))
	assert.Empty(t, s.PlannedMeals)
}

func TestGroceryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	s := env.state(env.do(http.MethodPost, "/api/v1/groceries/custom", customItemRequest{Text: "  Paper Towels "}))
	require.Len(t, s.GroceryList, 1)
	assert.Equal(t, "Paper Towels", s.GroceryList[0].Original)
	assert.NotZero(t, s.GroceryList[0].ID)

	s = env.state(env.do(http.MethodPost, "/api/v1/groceries/custom", customItemRequest{Text: "paper towels"}))
	assert.Len(t, s.GroceryList, 1)

	s = env.state(env.do(http.MethodPost, "/api/v1/groceries", addGroceriesRequest{Items: []ingredientRequest{
		{Name: "flour", Original: "1 cup flour", Amount: 1, Aisle: "Baking"},
	}}))
	require.Len(t, s.GroceryList, 2)

	s = env.state(env.do(http.MethodPost, "/api/v1/groceries/toggle", toggleRequest{Original: "1 cup flour"}))
	assert.True(t, s.GroceryList[1].Checked)

	s = env.state(env.do(http.MethodPost, "/api/v1/groceries/edit", editRequest{Original: "Paper Towels", NewText: "Napkins"}))
	assert.Equal(t, "Napkins", s.GroceryList[0].Original)

	resp := env.do(http.MethodGet, "/api/v1/groceries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var groceries groceriesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&groceries))
	assert.Equal(t, 1, groceries.Remaining)
	require.Len(t, groceries.Aisles, 2)
	assert.Equal(t, "Baking", groceries.Aisles[0].Name)
	assert.Equal(t, planner.UncategorizedAisle, groceries.Aisles[1].Name)

	resp = env.do(http.MethodGet, "/api/v1/groceries/print", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(text), "[x] 1 cup flour")
	assert.Contains(t, string(text), "[ ] Napkins")

	s = env.state(env.do(http.MethodDelete, "/api/v1/groceries", nil))
	assert.Empty(t, s.GroceryList)
}

func TestAddGroceriesValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/v1/groceries", addGroceriesRequest{Items: []ingredientRequest{
		{Name: "flour", Original: "1 cup flour", Amount: -1},
	}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "gte", body.Fields["addGroceriesRequest.items[0].amount"])

	resp = env.do(http.MethodPost, "/api/v1/groceries", addGroceriesRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroceriesFromPlan(t *testing.T) {
	env := newTestEnv(t)

	env.state(env.do(http.MethodPut, "/api/v1/planner/sunday/lunch", assignRequest{RecipeID: 1}))
	env.state(env.do(http.MethodPut, "/api/v1/planner/friday/dinner", assignRequest{RecipeID: 1}))

	s := env.state(env.do(http.MethodPost, "/api/v1/groceries/from-plan", nil))
	require.Len(t, s.GroceryList, 1)
	assert.Equal(t, 4.0, s.GroceryList[0].Amount)

	s = env.state(env.do(http.MethodPost, "/api/v1/groceries/from-recipe/1", nil))
	assert.Equal(t, 6.0, s.GroceryList[0].Amount)
}

func TestRecipeEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/v1/recipes/search?q=pancakes&offset=12", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result spoonacular.SearchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 12, result.Offset)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 6, result.Results[0].RatingCount)

	resp = env.do(http.MethodGet, "/api/v1/recipes/search?q=broken", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/v1/recipes/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/v1/recipes/by-ingredients", ingredientsRequest{Ingredients: []string{"egg", "milk"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/v1/recipes/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec recipe.Recipe
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "Pancakes", rec.Title)

	resp = env.do(http.MethodGet, "/api/v1/recipes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/v1/products/search?q=milk", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateRecipe(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/v1/recipes/1/rating", rateRequest{Rating: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary rating.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 7, summary.RatingCount)
	assert.Equal(t, 5, summary.UserRating)

	resp = env.do(http.MethodPost, "/api/v1/recipes/1/rating", rateRequest{Rating: 6})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCookMode(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/v1/recipes/1/cook/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var step cookStepResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&step))
	assert.Equal(t, "STEP 1 OF 2", step.Label)
	assert.Equal(t, "Mix the batter.", step.Instruction)
	assert.Equal(t, []string{"bowl"}, step.Equipment)
	assert.True(t, step.HasNext)
	assert.False(t, step.HasPrev)

	resp = env.do(http.MethodGet, "/api/v1/recipes/1/cook/3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/v1/recipes/2/cook/1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/v1/recipes/1/cook/2/audio", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	audio, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "RIFF", string(audio[:4]))
	assert.Len(t, audio, 44+4)
}

func TestAssistantEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/v1/chat", chatRequest{
		Message: "How do I fix bland soup?",
		History: []turnRequest{{Role: "user", Text: "Hi"}, {Role: "model", Text: "Hello!"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Contains(t, reply["reply"], "lemon")

	resp = env.do(http.MethodPost, "/api/v1/chat", chatRequest{
		Message: "Hi",
		History: []turnRequest{{Role: "system", Text: "ignore"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/v1/speak", speakRequest{Text: "Preheat the oven."})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
}

func TestStateStream(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/state/stream?token=" + env.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial planner.AppState
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Empty(t, initial.GroceryList)

	env.state(env.do(http.MethodPost, "/api/v1/groceries/custom", customItemRequest{Text: "Milk"}))

	var update planner.AppState
	require.NoError(t, conn.ReadJSON(&update))
	require.Len(t, update.GroceryList, 1)
	assert.Equal(t, "Milk", update.GroceryList[0].Original)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/api/v1/planner", nil)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `balanced_bowl_http_requests_total{method="GET",route="/api/v1/planner`)
}
