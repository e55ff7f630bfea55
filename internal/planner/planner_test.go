package planner

import (
	"strings"
	"testing"

	"balanced-bowl/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	recipeA = recipe.Card{ID: 1, Title: "Recipe A", Image: "a.jpg"}
	recipeB = recipe.Card{ID: 2, Title: "Recipe B", Image: "b.jpg"}
)

func emptyState() AppState {
	return AppState{PlannedMeals: []PlannedMeal{}, GroceryList: []GroceryItem{}}
}

func flour(amount float64) recipe.Ingredient {
	return recipe.Ingredient{ID: 20081, Name: "flour", Original: "2 cups flour", Amount: amount, Unit: "cups", Aisle: "Baking"}
}

func TestAssignAndRemoveMeal(t *testing.T) {
	s := emptyState()

	s = Apply(s, AssignMeal{Day: Monday, MealType: Dinner, Recipe: recipeA})
	require.Len(t, s.PlannedMeals, 1)
	assert.Equal(t, recipeA, s.PlannedMeals[0].Recipe)

	s = Apply(s, AssignMeal{Day: Monday, MealType: Dinner, Recipe: recipeB})
	require.Len(t, s.PlannedMeals, 1)
	assert.Equal(t, PlannedMeal{Day: Monday, MealType: Dinner, Recipe: recipeB}, s.PlannedMeals[0])

	s = Apply(s, RemoveMeal{Day: Monday, MealType: Dinner})
	assert.Empty(t, s.PlannedMeals)
}

func TestAssignMealKeepsOtherSlots(t *testing.T) {
	s := emptyState()
	s = Apply(s, AssignMeal{Day: Monday, MealType: Lunch, Recipe: recipeA})
	s = Apply(s, AssignMeal{Day: Tuesday, MealType: Dinner, Recipe: recipeA})
	s = Apply(s, AssignMeal{Day: Monday, MealType: Dinner, Recipe: recipeB})
	s = Apply(s, AssignMeal{Day: Monday, MealType: Lunch, Recipe: recipeB})

	require.Len(t, s.PlannedMeals, 3)
	meal, ok := s.Meal(Monday, Lunch)
	require.True(t, ok)
	assert.Equal(t, recipeB, meal.Recipe)

	meal, ok = s.Meal(Tuesday, Dinner)
	require.True(t, ok)
	assert.Equal(t, recipeA, meal.Recipe)
}

func TestAssignMealAtMostOnePerSlot(t *testing.T) {
	s := emptyState()
	for i := 0; i < 5; i++ {
		for _, day := range Days {
			for _, mt := range MealTypes {
				s = Apply(s, AssignMeal{Day: day, MealType: mt, Recipe: recipe.Card{ID: int64(i)}})
			}
		}
	}
	assert.Len(t, s.PlannedMeals, len(Days)*len(MealTypes))

	seen := map[[2]string]bool{}
	for _, m := range s.PlannedMeals {
		key := [2]string{string(m.Day), string(m.MealType)}
		assert.False(t, seen[key], "duplicate slot %v", key)
		seen[key] = true
		assert.Equal(t, int64(4), m.Recipe.ID)
	}
}

func TestAssignMealInvalidSlot(t *testing.T) {
	s := emptyState()
	next, changed := transition(s, AssignMeal{Day: "Someday", MealType: Dinner, Recipe: recipeA})
	assert.False(t, changed)
	assert.Empty(t, next.PlannedMeals)

	_, changed = transition(s, AssignMeal{Day: Monday, MealType: "brunch", Recipe: recipeA})
	assert.False(t, changed)
}

func TestRemoveMealEmptySlot(t *testing.T) {
	s := Apply(emptyState(), AssignMeal{Day: Friday, MealType: Breakfast, Recipe: recipeA})
	next, changed := transition(s, RemoveMeal{Day: Monday, MealType: Dinner})
	assert.False(t, changed)
	assert.Equal(t, s, next)
}

func TestAddGroceriesMergesByName(t *testing.T) {
	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{flour(2)}})
	s = Apply(s, AddGroceries{Items: []recipe.Ingredient{flour(1)}})

	require.Len(t, s.GroceryList, 1)
	assert.Equal(t, 3.0, s.GroceryList[0].Amount)
	assert.False(t, s.GroceryList[0].Checked)
}

func TestAddGroceriesMergesWithinBatch(t *testing.T) {
	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{
		flour(2),
		{Name: "sugar", Original: "1 cup sugar", Amount: 1},
		flour(0.5),
	}})

	require.Len(t, s.GroceryList, 2)
	assert.Equal(t, "flour", s.GroceryList[0].Name)
	assert.Equal(t, 2.5, s.GroceryList[0].Amount)
	assert.Equal(t, "sugar", s.GroceryList[1].Name)
	assert.Equal(t, UncategorizedAisle, s.GroceryList[1].Aisle)
}

func TestAddGroceriesKeepsCheckedOnMerge(t *testing.T) {
	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{flour(2)}})
	s = Apply(s, ToggleGroceryItem{Original: "2 cups flour"})
	s = Apply(s, AddGroceries{Items: []recipe.Ingredient{flour(1)}})

	require.Len(t, s.GroceryList, 1)
	assert.True(t, s.GroceryList[0].Checked)
	assert.Equal(t, 3.0, s.GroceryList[0].Amount)
}

func TestAddGroceriesEmptyBatch(t *testing.T) {
	_, changed := transition(emptyState(), AddGroceries{})
	assert.False(t, changed)
}

func TestToggleGroceryItem(t *testing.T) {
	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{flour(2)}})

	s = Apply(s, ToggleGroceryItem{Original: "2 cups flour"})
	assert.True(t, s.GroceryList[0].Checked)

	s = Apply(s, ToggleGroceryItem{Original: "2 cups flour"})
	assert.False(t, s.GroceryList[0].Checked)

	next, changed := transition(s, ToggleGroceryItem{Original: "2 CUPS FLOUR"})
	assert.False(t, changed)
	assert.Equal(t, s, next)
}

func TestToggleGroceryItemAllMatches(t *testing.T) {
	// Same Original, different Name: both are toggled.
	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{
		{Name: "salt", Original: "to taste"},
		{Name: "pepper", Original: "to taste"},
	}})
	s = Apply(s, ToggleGroceryItem{Original: "to taste"})

	require.Len(t, s.GroceryList, 2)
	assert.True(t, s.GroceryList[0].Checked)
	assert.True(t, s.GroceryList[1].Checked)
}

func TestClearGroceries(t *testing.T) {
	s := Apply(emptyState(), AssignMeal{Day: Sunday, MealType: Lunch, Recipe: recipeA})
	s = Apply(s, AddGroceries{Items: []recipe.Ingredient{flour(2)}})
	s = Apply(s, AddCustomGroceryItem{Text: "Paper Towels", ID: 7})

	s = Apply(s, ClearGroceries{})
	assert.Empty(t, s.GroceryList)
	assert.Len(t, s.PlannedMeals, 1)

	_, changed := transition(s, ClearGroceries{})
	assert.False(t, changed)
}

func TestClearThenAddMatchesFresh(t *testing.T) {
	batch := AddGroceries{Items: []recipe.Ingredient{flour(2), flour(1), {Name: "milk", Original: "1 cup milk", Amount: 1}}}

	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{flour(5)}})
	s = Apply(s, AddCustomGroceryItem{Text: "Paper Towels", ID: 3})
	s = Apply(s, ToggleGroceryItem{Original: "Paper Towels"})
	s = Apply(s, ClearGroceries{})
	s = Apply(s, batch)

	fresh := Apply(emptyState(), batch)
	assert.Equal(t, fresh.GroceryList, s.GroceryList)
	for _, item := range s.GroceryList {
		assert.False(t, item.Checked)
	}
}

func TestAddCustomGroceryItem(t *testing.T) {
	s := Apply(emptyState(), AddCustomGroceryItem{Text: "  Paper Towels  ", ID: 42})

	require.Len(t, s.GroceryList, 1)
	item := s.GroceryList[0]
	assert.Equal(t, int64(42), item.ID)
	assert.Equal(t, "Paper Towels", item.Name)
	assert.Equal(t, "Paper Towels", item.NameClean)
	assert.Equal(t, "Paper Towels", item.Original)
	assert.Equal(t, "Paper Towels", item.OriginalName)
	assert.Equal(t, 1.0, item.Amount)
	assert.Equal(t, "item", item.Unit)
	assert.Equal(t, UncategorizedAisle, item.Aisle)
	assert.False(t, item.Checked)
}

func TestAddCustomGroceryItemDedup(t *testing.T) {
	s := Apply(emptyState(), AddCustomGroceryItem{Text: "Paper Towels", ID: 1})
	s = Apply(s, AddCustomGroceryItem{Text: "paper towels", ID: 2})

	require.Len(t, s.GroceryList, 1)
	assert.Equal(t, "Paper Towels", s.GroceryList[0].Original)
}

func TestAddCustomGroceryItemBlank(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, changed := transition(emptyState(), AddCustomGroceryItem{Text: text, ID: 1})
		assert.False(t, changed, "text %q", text)
	}
}

func TestEditGroceryItem(t *testing.T) {
	s := Apply(emptyState(), AddGroceries{Items: []recipe.Ingredient{flour(2)}})
	s = Apply(s, EditGroceryItem{Original: "2 cups flour", NewText: "  3 cups whole wheat flour "})

	require.Len(t, s.GroceryList, 1)
	item := s.GroceryList[0]
	assert.Equal(t, "3 cups whole wheat flour", item.Original)
	assert.Equal(t, "3 cups whole wheat flour", item.Name)
	assert.Equal(t, "3 cups whole wheat flour", item.NameClean)
	assert.Equal(t, "3 cups whole wheat flour", item.OriginalName)
	assert.Equal(t, 2.0, item.Amount)
	assert.Equal(t, "Baking", item.Aisle)

	_, found := s.GroceryItem("2 cups flour")
	assert.False(t, found, "old label must no longer resolve")
	_, found = s.GroceryItem("3 cups whole wheat flour")
	assert.True(t, found)

	next, changed := transition(s, ToggleGroceryItem{Original: "2 cups flour"})
	assert.False(t, changed)
	assert.Equal(t, s, next)
}

func TestEditGroceryItemNoOps(t *testing.T) {
	s := Apply(emptyState(), AddCustomGroceryItem{Text: "Milk", ID: 1})
	s = Apply(s, AddCustomGroceryItem{Text: "Eggs", ID: 2})

	cases := []struct {
		name string
		edit EditGroceryItem
	}{
		{"Blank", EditGroceryItem{Original: "Milk", NewText: "   "}},
		{"NoMatch", EditGroceryItem{Original: "Bread", NewText: "Rye Bread"}},
		{"CaseMismatch", EditGroceryItem{Original: "milk", NewText: "Oat Milk"}},
		{"CollidesWithOther", EditGroceryItem{Original: "Milk", NewText: "EGGS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, changed := transition(s, tc.edit)
			assert.False(t, changed)
			assert.Equal(t, s, next)
		})
	}
}

func TestEditGroceryItemRecase(t *testing.T) {
	s := Apply(emptyState(), AddCustomGroceryItem{Text: "milk", ID: 1})
	s = Apply(s, EditGroceryItem{Original: "milk", NewText: "Milk"})

	require.Len(t, s.GroceryList, 1)
	assert.Equal(t, "Milk", s.GroceryList[0].Original)
}

func TestApplyUnknownAction(t *testing.T) {
	s := Apply(emptyState(), AssignMeal{Day: Monday, MealType: Dinner, Recipe: recipeA})
	assert.Equal(t, s, Apply(s, nil))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := Apply(emptyState(), AssignMeal{Day: Monday, MealType: Dinner, Recipe: recipeA})
	s = Apply(s, AddGroceries{Items: []recipe.Ingredient{flour(2)}})
	s = Apply(s, AddCustomGroceryItem{Text: "Milk", ID: 1})
	before := s.Clone()

	actions := []Action{
		AssignMeal{Day: Monday, MealType: Dinner, Recipe: recipeB},
		AssignMeal{Day: Tuesday, MealType: Lunch, Recipe: recipeB},
		RemoveMeal{Day: Monday, MealType: Dinner},
		AddGroceries{Items: []recipe.Ingredient{flour(5)}},
		ToggleGroceryItem{Original: "2 cups flour"},
		ClearGroceries{},
		AddCustomGroceryItem{Text: "Bread", ID: 2},
		EditGroceryItem{Original: "Milk", NewText: "Oat Milk"},
	}
	for _, a := range actions {
		_ = Apply(s, a)
		assert.Equal(t, before, s, "action %T mutated its input", a)
	}
}

func TestGroceryKeysStayUnique(t *testing.T) {
	s := emptyState()
	seq := []Action{
		AddCustomGroceryItem{Text: "Apples", ID: 1},
		AddCustomGroceryItem{Text: "apples", ID: 2},
		AddCustomGroceryItem{Text: "Pears", ID: 3},
		EditGroceryItem{Original: "Pears", NewText: "APPLES"},
		EditGroceryItem{Original: "Pears", NewText: "Plums"},
		AddCustomGroceryItem{Text: "plums", ID: 4},
		AddCustomGroceryItem{Text: "Kiwi", ID: 5},
	}
	for _, a := range seq {
		s = Apply(s, a)
	}

	require.Len(t, s.GroceryList, 3)
	seen := map[string]bool{}
	for _, item := range s.GroceryList {
		key := strings.ToLower(item.Original)
		assert.False(t, seen[key], "duplicate key %q", key)
		seen[key] = true
	}
}

func TestParseDayAndMealType(t *testing.T) {
	d, ok := ParseDay("monday")
	assert.True(t, ok)
	assert.Equal(t, Monday, d)

	d, ok = ParseDay("Sat")
	assert.True(t, ok)
	assert.Equal(t, Saturday, d)

	_, ok = ParseDay("Funday")
	assert.False(t, ok)

	m, ok := ParseMealType(" Dinner ")
	assert.True(t, ok)
	assert.Equal(t, Dinner, m)

	_, ok = ParseMealType("brunch")
	assert.False(t, ok)

	assert.Equal(t, Sunday, Days[0])
}
