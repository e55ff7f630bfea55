package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"balanced-bowl/internal/cookmode"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🥗 *Balanced Bowl*

*Recipes*
/search <query> - find recipes
/ingredients <a, b, c> - recipes from what you have
/random - a few ideas
/recipe <id> - details
/rate <id> <1-5> - rate a recipe
/cook <id> - step-by-step cook mode
/products <query> - grocery products

*Planner*
/plan - this week's meals
/assign <day> <meal> <id> - plan a recipe
/remove <day> <meal> - clear a slot

*Groceries*
/groceries - your list
/fromplan - add everything the plan needs
/addrecipe <id> - add one recipe's ingredients
/add <item> - add your own item
/toggle <item> - check or uncheck
/edit <item> => <new text> - rename
/clear - empty the list

Anything else goes to the cooking assistant.`

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// formatPlanMarkdown lists the week by day, skipping empty days.
func formatPlanMarkdown(state planner.AppState) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*\n")
	if len(state.PlannedMeals) == 0 {
		sb.WriteString("\n_Nothing planned yet. Try /assign monday dinner <recipe id>._\n")
		return sb.String()
	}

	var calories float64
	for _, day := range planner.Days {
		var lines []string
		for _, mt := range planner.MealTypes {
			m, ok := state.Meal(day, mt)
			if !ok {
				continue
			}
			line := fmt.Sprintf("• %s: %s", mealLabel(mt), escape(m.Recipe.Title))
			if m.Recipe.ReadyInMinutes > 0 {
				line += fmt.Sprintf(" (%d min)", m.Recipe.ReadyInMinutes)
			}
			lines = append(lines, line)
			calories += m.Recipe.Calories
		}
		if len(lines) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n%s\n", day, strings.Join(lines, "\n")))
	}
	if calories > 0 {
		sb.WriteString(fmt.Sprintf("\n🔥 *Total:* %.0f kcal\n", calories))
	}
	return sb.String()
}

func mealLabel(mt planner.MealType) string {
	s := string(mt)
	return strings.ToUpper(s[:1]) + s[1:]
}

func ratingLabel(avg float64, count int) string {
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("⭐ %.1f (%d)", avg, count)
}

// formatSummaries renders a numbered recipe listing with the IDs commands take.
func formatSummaries(title string, list []recipe.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔎 *%s*\n", escape(title)))
	if len(list) == 0 {
		sb.WriteString("\n_No recipes found._\n")
		return sb.String()
	}
	for _, s := range list {
		sb.WriteString(fmt.Sprintf("\n*%s* `#%d`\n", escape(s.Title), s.ID))
		var details []string
		if s.ReadyInMinutes > 0 {
			details = append(details, fmt.Sprintf("⏱ %d min", s.ReadyInMinutes))
		}
		if r := ratingLabel(s.AverageRating, s.RatingCount); r != "" {
			details = append(details, r)
		}
		if s.UsedIngredientCount > 0 || s.MissedIngredientCount > 0 {
			details = append(details, fmt.Sprintf("uses %d, missing %d", s.UsedIngredientCount, s.MissedIngredientCount))
		}
		if len(details) > 0 {
			sb.WriteString(strings.Join(details, " · ") + "\n")
		}
	}
	return sb.String()
}

func formatRecipes(title string, list []recipe.Recipe) string {
	summaries := make([]recipe.Summary, 0, len(list))
	for _, r := range list {
		summaries = append(summaries, recipe.Summary{
			ID:             r.ID,
			Title:          r.Title,
			ReadyInMinutes: r.ReadyInMinutes,
			AverageRating:  r.AverageRating,
			RatingCount:    r.RatingCount,
		})
	}
	return formatSummaries(title, summaries)
}

func formatRecipe(rec *recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *%s* `#%d`\n", escape(rec.Title), rec.ID))

	var details []string
	if rec.ReadyInMinutes > 0 {
		details = append(details, fmt.Sprintf("⏱ %d min", rec.ReadyInMinutes))
	}
	if rec.Servings > 0 {
		details = append(details, fmt.Sprintf("🍴 %d servings", rec.Servings))
	}
	if cal := rec.Calories(); cal > 0 {
		details = append(details, fmt.Sprintf("🔥 %.0f kcal", cal))
	}
	if r := ratingLabel(rec.AverageRating, rec.RatingCount); r != "" {
		details = append(details, r)
	}
	if len(details) > 0 {
		sb.WriteString(strings.Join(details, " · ") + "\n")
	}
	if rec.UserRating > 0 {
		sb.WriteString(fmt.Sprintf("_You rated it %d/5_\n", rec.UserRating))
	}

	if summary := recipe.FirstSentences(recipe.PlainSummary(rec.Summary), 2); summary != "" {
		sb.WriteString("\n" + escape(summary) + "\n")
	}

	if len(rec.ExtendedIngredients) > 0 {
		sb.WriteString("\n*Ingredients*\n")
		for _, ing := range rec.ExtendedIngredients {
			sb.WriteString("• " + escape(ing.Original) + "\n")
		}
	}
	if steps := rec.Steps(); len(steps) > 0 {
		sb.WriteString(fmt.Sprintf("\n_%d steps. Send /cook %d to start cooking._\n", len(steps), rec.ID))
	}
	return sb.String()
}

func formatProducts(query string, products []recipe.Product) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛍 *Products for \"%s\"*\n", escape(query)))
	if len(products) == 0 {
		sb.WriteString("\n_No products found._\n")
		return sb.String()
	}
	for _, p := range products {
		sb.WriteString("• " + escape(p.Title) + "\n")
	}
	return sb.String()
}

func formatCookStep(s *cookmode.Session) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👩‍🍳 *%s*\n", escape(s.Title)))
	sb.WriteString(fmt.Sprintf("_%s · %.0f%%_\n\n", s.Label(), s.Progress()))
	sb.WriteString(escape(s.Current().Step))
	if !s.HasNext() {
		sb.WriteString("\n\n🎉 _That's the last step. Enjoy your meal!_")
	}
	return sb.String()
}

// Cook mode callbacks carry the whole position, so no session is kept between taps:
// "cook|<recipe id>|<step index>|<voice 0/1>".
const cookPrefix = "cook"

func cookData(recipeID int64, index int, voice bool) string {
	v := "0"
	if voice {
		v = "1"
	}
	return fmt.Sprintf("%s|%d|%d|%s", cookPrefix, recipeID, index, v)
}

func parseCookData(data string) (recipeID int64, index int, voice bool, err error) {
	parts := strings.Split(data, "|")
	if len(parts) != 4 || parts[0] != cookPrefix {
		return 0, 0, false, fmt.Errorf("invalid cook callback %q", data)
	}
	recipeID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid recipe id in %q: %w", data, err)
	}
	index, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid step in %q: %w", data, err)
	}
	return recipeID, index, parts[3] == "1", nil
}

func cookKeyboard(s *cookmode.Session) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if s.HasPrev() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", cookData(s.RecipeID, s.Index()-1, s.VoiceOn())))
	}
	voice := "🔇 Voice off"
	if !s.VoiceOn() {
		voice = "🔊 Voice on"
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(voice, cookData(s.RecipeID, s.Index(), !s.VoiceOn())))
	if s.HasNext() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", cookData(s.RecipeID, s.Index()+1, s.VoiceOn())))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// parseSlot reads "<day> <meal>" from the front of args.
func parseSlot(args []string) (planner.Day, planner.MealType, error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("expected a day and a meal, e.g. monday dinner")
	}
	day, ok := planner.ParseDay(args[0])
	if !ok {
		return "", "", fmt.Errorf("unknown day %q", args[0])
	}
	mt, ok := planner.ParseMealType(args[1])
	if !ok {
		return "", "", fmt.Errorf("unknown meal %q, use breakfast, lunch or dinner", args[1])
	}
	return day, mt, nil
}

func parseRecipeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recipe id %q", arg)
	}
	return id, nil
}

// parseEdit splits "old text => new text".
func parseEdit(args string) (original, newText string, err error) {
	parts := strings.SplitN(args, "=>", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return "", "", fmt.Errorf("use /edit <item> => <new text>")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// parseIngredients splits a comma or space separated list.
func parseIngredients(args string) []string {
	sep := func(r rune) bool { return r == ',' || r == '\n' }
	if !strings.ContainsAny(args, ",\n") {
		sep = func(r rune) bool { return r == ' ' }
	}
	var out []string
	for _, f := range strings.FieldsFunc(args, sep) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
