package recipe

import "strings"

// Recipe is the full recipe record returned by the data provider.
type Recipe struct {
	ID                   int64                 `json:"id"`
	Title                string                `json:"title"`
	Image                string                `json:"image"`
	ReadyInMinutes       int                   `json:"readyInMinutes"`
	Servings             int                   `json:"servings"`
	Summary              string                `json:"summary"`
	ExtendedIngredients  []Ingredient          `json:"extendedIngredients"`
	AnalyzedInstructions []AnalyzedInstruction `json:"analyzedInstructions"`
	Nutrition            Nutrition             `json:"nutrition"`
	HealthScore          float64               `json:"healthScore"`
	Cheap                bool                  `json:"cheap"`
	VeryHealthy          bool                  `json:"veryHealthy"`
	DishTypes            []string              `json:"dishTypes"`

	AverageRating float64 `json:"averageRating,omitempty"`
	RatingCount   int     `json:"ratingCount,omitempty"`
	UserRating    int     `json:"userRating,omitempty"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	ID           int64    `json:"id"`
	Aisle        string   `json:"aisle"`
	Image        string   `json:"image"`
	Consistency  string   `json:"consistency"`
	Name         string   `json:"name"`
	NameClean    string   `json:"nameClean"`
	Original     string   `json:"original"`
	OriginalName string   `json:"originalName"`
	Amount       float64  `json:"amount"`
	Unit         string   `json:"unit"`
	Meta         []string `json:"meta"`
}

// AnalyzedInstruction is a named block of cooking steps.
type AnalyzedInstruction struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step is a single cooking instruction.
type Step struct {
	Number      int         `json:"number"`
	Step        string      `json:"step"`
	Ingredients []StepItem  `json:"ingredients"`
	Equipment   []StepItem  `json:"equipment"`
	Length      *StepLength `json:"length,omitempty"`
}

// StepItem is an ingredient or piece of equipment referenced by a step.
type StepItem struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LocalizedName string `json:"localizedName"`
	Image         string `json:"image"`
}

// StepLength is the time a step takes.
type StepLength struct {
	Number int    `json:"number"`
	Unit   string `json:"unit"`
}

// Nutrient is a single nutrition fact.
type Nutrient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Nutrition groups the nutrients of a recipe.
type Nutrition struct {
	Nutrients []Nutrient `json:"nutrients"`
}

// Summary is a recipe as it appears in search and random listings.
type Summary struct {
	ID                    int64   `json:"id"`
	Title                 string  `json:"title"`
	Image                 string  `json:"image"`
	ReadyInMinutes        int     `json:"readyInMinutes,omitempty"`
	Servings              int     `json:"servings,omitempty"`
	HealthScore           float64 `json:"healthScore,omitempty"`
	Summary               string  `json:"summary,omitempty"`
	UsedIngredientCount   int     `json:"usedIngredientCount,omitempty"`
	MissedIngredientCount int     `json:"missedIngredientCount,omitempty"`
	Likes                 int     `json:"likes,omitempty"`

	AverageRating float64 `json:"averageRating,omitempty"`
	RatingCount   int     `json:"ratingCount,omitempty"`
	UserRating    int     `json:"userRating,omitempty"`
}

// Product is a packaged grocery product.
type Product struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

// Card is the reduced recipe reference stored in a meal plan slot.
type Card struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Image          string  `json:"image"`
	ReadyInMinutes int     `json:"readyInMinutes,omitempty"`
	HealthScore    float64 `json:"healthScore,omitempty"`
	Calories       float64 `json:"calories,omitempty"`
	AverageRating  float64 `json:"averageRating,omitempty"`
	RatingCount    int     `json:"ratingCount,omitempty"`
	Servings       int     `json:"servings,omitempty"`
}

// Card reduces a full recipe to the reference kept in the planner.
func (r Recipe) Card() Card {
	return Card{
		ID:             r.ID,
		Title:          r.Title,
		Image:          r.Image,
		ReadyInMinutes: r.ReadyInMinutes,
		HealthScore:    r.HealthScore,
		Calories:       r.Calories(),
		AverageRating:  r.AverageRating,
		RatingCount:    r.RatingCount,
		Servings:       r.Servings,
	}
}

// Card reduces a listing entry to a planner reference.
func (s Summary) Card() Card {
	return Card{
		ID:             s.ID,
		Title:          s.Title,
		Image:          s.Image,
		ReadyInMinutes: s.ReadyInMinutes,
		HealthScore:    s.HealthScore,
		AverageRating:  s.AverageRating,
		RatingCount:    s.RatingCount,
		Servings:       s.Servings,
	}
}

// Calories returns the calorie nutrient amount, or 0 when nutrition is missing.
func (r Recipe) Calories() float64 {
	for _, n := range r.Nutrition.Nutrients {
		if strings.EqualFold(n.Name, "Calories") {
			return n.Amount
		}
	}
	return 0
}

// Steps returns the steps of the first instruction block.
func (r Recipe) Steps() []Step {
	if len(r.AnalyzedInstructions) == 0 {
		return nil
	}
	return r.AnalyzedInstructions[0].Steps
}
