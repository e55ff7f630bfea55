package api

import (
	"net/http"
	"strconv"
	"strings"

	"balanced-bowl/internal/assistant"
	"balanced-bowl/internal/cookmode"
	"balanced-bowl/internal/llm"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/recipe"
	"balanced-bowl/internal/shopping"
	"balanced-bowl/internal/spoonacular"

	"github.com/go-chi/chi/v5"
)

type sessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	token, uid, err := s.jwt.NewSession()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, UserID: uid})
}

// Recipes

func (s *Server) handleSearchRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, badRequest("query parameter q is required"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.app.SearchRecipes(r.Context(), userID(r.Context()), query, q.Get("diet"), offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRandomRecipes(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	if count > 100 {
		writeError(w, badRequest("count must be at most 100"))
		return
	}

	recipes, err := s.app.RandomRecipes(r.Context(), userID(r.Context()), count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": recipes})
}

type ingredientsRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Number      int      `json:"number" validate:"gte=0,lte=100"`
	Diet        string   `json:"diet"`
	Cuisine     string   `json:"cuisine"`
}

func (s *Server) handleFindByIngredients(w http.ResponseWriter, r *http.Request) {
	var req ingredientsRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	results, err := s.app.FindByIngredients(r.Context(), userID(r.Context()), spoonacular.IngredientQuery{
		Ingredients: req.Ingredients,
		Number:      req.Number,
		Diet:        req.Diet,
		Cuisine:     req.Cuisine,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.app.Recipe(r.Context(), userID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type rateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

func (s *Server) handleRateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req rateRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.app.Rate(r.Context(), userID(r.Context()), id, req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, badRequest("query parameter q is required"))
		return
	}
	result, err := s.app.SearchProducts(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Cook mode

type cookStepResponse struct {
	RecipeID    int64    `json:"recipeId"`
	Title       string   `json:"title"`
	Step        int      `json:"step"`
	Total       int      `json:"total"`
	Label       string   `json:"label"`
	Progress    float64  `json:"progress"`
	Instruction string   `json:"instruction"`
	Ingredients []string `json:"ingredients,omitempty"`
	Equipment   []string `json:"equipment,omitempty"`
	HasPrev     bool     `json:"hasPrev"`
	HasNext     bool     `json:"hasNext"`
}

// cookSession opens cook mode at the 1-based step of the path.
func (s *Server) cookSession(r *http.Request) (*cookmode.Session, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		return nil, badRequest("invalid step %q", chi.URLParam(r, "step"))
	}

	session, err := s.app.CookSession(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !session.Goto(step - 1) {
		return nil, badRequest("step %d out of range 1..%d", step, session.Len())
	}
	return session, nil
}

func (s *Server) handleCookStep(w http.ResponseWriter, r *http.Request) {
	session, err := s.cookSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cur := session.Current()
	resp := cookStepResponse{
		RecipeID:    session.RecipeID,
		Title:       session.Title,
		Step:        session.Index() + 1,
		Total:       session.Len(),
		Label:       session.Label(),
		Progress:    session.Progress(),
		Instruction: cur.Step,
		HasPrev:     session.HasPrev(),
		HasNext:     session.HasNext(),
	}
	for _, item := range cur.Ingredients {
		resp.Ingredients = append(resp.Ingredients, item.Name)
	}
	for _, item := range cur.Equipment {
		resp.Equipment = append(resp.Equipment, item.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCookAudio(w http.ResponseWriter, r *http.Request) {
	session, err := s.cookSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var pcm []byte
	if a := s.app.Assistant(); a != nil {
		pcm = session.Narrate(r.Context(), a)
	}
	writeAudio(w, pcm)
}

// Planner

func (s *Server) handleGetPlanner(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.State(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func slot(r *http.Request) (planner.Day, planner.MealType, error) {
	day, ok := planner.ParseDay(chi.URLParam(r, "day"))
	if !ok {
		return "", "", badRequest("invalid day %q", chi.URLParam(r, "day"))
	}
	mt, ok := planner.ParseMealType(chi.URLParam(r, "mealType"))
	if !ok {
		return "", "", badRequest("invalid meal type %q", chi.URLParam(r, "mealType"))
	}
	return day, mt, nil
}

type assignRequest struct {
	RecipeID int64 `json:"recipeId" validate:"required,gt=0"`
}

func (s *Server) handleAssignMeal(w http.ResponseWriter, r *http.Request) {
	day, mt, err := slot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req assignRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	state, err := s.app.AssignRecipe(r.Context(), userID(r.Context()), day, mt, req.RecipeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRemoveMeal(w http.ResponseWriter, r *http.Request) {
	day, mt, err := slot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, planner.RemoveMeal{Day: day, MealType: mt})
}

// Groceries

type groceriesResponse struct {
	Items     []planner.GroceryItem `json:"items"`
	Aisles    []shopping.Aisle      `json:"aisles"`
	Remaining int                   `json:"remaining"`
}

func (s *Server) handleGetGroceries(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.State(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groceriesResponse{
		Items:     state.GroceryList,
		Aisles:    shopping.GroupByAisle(state.GroceryList),
		Remaining: shopping.Remaining(state.GroceryList),
	})
}

func (s *Server) handlePrintGroceries(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.State(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(shopping.FormatText(state.GroceryList)))
}

type ingredientRequest struct {
	ID           int64    `json:"id"`
	Aisle        string   `json:"aisle"`
	Image        string   `json:"image"`
	Consistency  string   `json:"consistency"`
	Name         string   `json:"name" validate:"required"`
	NameClean    string   `json:"nameClean"`
	Original     string   `json:"original" validate:"required"`
	OriginalName string   `json:"originalName"`
	Amount       float64  `json:"amount" validate:"gte=0"`
	Unit         string   `json:"unit"`
	Meta         []string `json:"meta"`
}

type addGroceriesRequest struct {
	Items []ingredientRequest `json:"items" validate:"required,min=1,dive"`
}

func (s *Server) handleAddGroceries(w http.ResponseWriter, r *http.Request) {
	var req addGroceriesRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := make([]recipe.Ingredient, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, recipe.Ingredient(it))
	}
	s.dispatch(w, r, planner.AddGroceries{Items: items})
}

type customItemRequest struct {
	Text string `json:"text" validate:"required,max=200"`
}

func (s *Server) handleAddCustomItem(w http.ResponseWriter, r *http.Request) {
	var req customItemRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, planner.AddCustomGroceryItem{Text: req.Text})
}

type toggleRequest struct {
	Original string `json:"original" validate:"required"`
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, planner.ToggleGroceryItem{Original: req.Original})
}

type editRequest struct {
	Original string `json:"original" validate:"required"`
	NewText  string `json:"newText" validate:"max=200"`
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, planner.EditGroceryItem{Original: req.Original, NewText: req.NewText})
}

func (s *Server) handleClearGroceries(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, planner.ClearGroceries{})
}

func (s *Server) handleGroceriesFromPlan(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.GenerateGroceryList(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGroceriesFromRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := s.app.AddRecipeToGroceries(r.Context(), userID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// dispatch applies action for the request's user and writes the resulting state.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, action planner.Action) {
	state, err := s.app.Dispatch(r.Context(), userID(r.Context()), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Assistant

type turnRequest struct {
	Role string `json:"role" validate:"oneof=user model"`
	Text string `json:"text" validate:"required"`
}

type chatRequest struct {
	Message string        `json:"message" validate:"required,max=4000"`
	History []turnRequest `json:"history" validate:"max=50,dive"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.app.Assistant() == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "assistant not configured"})
		return
	}
	var req chatRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	history := make([]assistant.Turn, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, assistant.Turn{Role: t.Role, Text: t.Text})
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": s.app.Chat(r.Context(), history, req.Message)})
}

type speakRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if s.app.Assistant() == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "assistant not configured"})
		return
	}
	var req speakRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeAudio(w, s.app.Assistant().Speak(r.Context(), req.Text))
}

// writeAudio writes PCM speech as a WAV file, or 204 when there is none.
func writeAudio(w http.ResponseWriter, pcm []byte) {
	if len(pcm) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	w.Write(cookmode.WAV(pcm, llm.SpeechSampleRate, 1))
}
