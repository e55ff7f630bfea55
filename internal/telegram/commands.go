package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"balanced-bowl/internal/cookmode"
	"balanced-bowl/internal/llm"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/rating"
	"balanced-bowl/internal/shopping"
	"balanced-bowl/internal/spoonacular"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Planner

func (b *Bot) handlePlan(ctx context.Context, chatID int64, userID string) {
	state, err := b.app.State(ctx, userID)
	if err != nil {
		b.replyError(chatID, "Could not load your plan", err)
		return
	}
	b.reply(chatID, formatPlanMarkdown(state))
}

func (b *Bot) handleAssign(ctx context.Context, chatID int64, userID, args string) {
	fields := strings.Fields(args)
	day, mt, err := parseSlot(fields)
	if err == nil && len(fields) < 3 {
		err = errors.New("missing recipe id")
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /assign <day> <meal> <recipe id>\n_%s_", escape(err.Error())))
		return
	}
	id, err := parseRecipeID(fields[2])
	if err != nil {
		b.reply(chatID, escape(err.Error()))
		return
	}

	state, err := b.app.AssignRecipe(ctx, userID, day, mt, id)
	if err != nil {
		b.replyError(chatID, "Could not plan that recipe", err)
		return
	}
	m, _ := state.Meal(day, mt)
	b.reply(chatID, fmt.Sprintf("✅ Planned *%s* for %s %s.", escape(m.Recipe.Title), day, mt))
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, userID, args string) {
	day, mt, err := parseSlot(strings.Fields(args))
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /remove <day> <meal>\n_%s_", escape(err.Error())))
		return
	}
	before, err := b.app.State(ctx, userID)
	if err != nil {
		b.replyError(chatID, "Could not load your plan", err)
		return
	}
	if _, ok := before.Meal(day, mt); !ok {
		b.reply(chatID, fmt.Sprintf("Nothing planned for %s %s.", day, mt))
		return
	}
	if _, err := b.app.Dispatch(ctx, userID, planner.RemoveMeal{Day: day, MealType: mt}); err != nil {
		b.replyError(chatID, "Could not update your plan", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("🗑 Cleared %s %s.", day, mt))
}

// Groceries

func (b *Bot) handleGroceries(ctx context.Context, chatID int64, userID string) {
	state, err := b.app.State(ctx, userID)
	if err != nil {
		b.replyError(chatID, "Could not load your list", err)
		return
	}
	b.reply(chatID, shopping.FormatMarkdown(state.GroceryList))
}

func (b *Bot) handleFromPlan(ctx context.Context, chatID int64, userID string) {
	state, err := b.app.State(ctx, userID)
	if err != nil {
		b.replyError(chatID, "Could not load your plan", err)
		return
	}
	if len(state.PlannedMeals) == 0 {
		b.reply(chatID, "_Nothing planned yet, so there is nothing to shop for._")
		return
	}
	b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	state, err = b.app.GenerateGroceryList(ctx, userID)
	if err != nil {
		b.replyError(chatID, "Could not build the list", err)
		return
	}
	b.reply(chatID, shopping.FormatMarkdown(state.GroceryList))
}

func (b *Bot) handleAddRecipe(ctx context.Context, chatID int64, userID, args string) {
	id, err := parseRecipeID(args)
	if err != nil {
		b.reply(chatID, "Usage: /addrecipe <recipe id>")
		return
	}
	state, err := b.app.AddRecipeToGroceries(ctx, userID, id)
	if err != nil {
		b.replyError(chatID, "Could not add the ingredients", err)
		return
	}
	b.reply(chatID, shopping.FormatMarkdown(state.GroceryList))
}

// dispatchGrocery applies a list action and replies with the list, or with
// unchanged when the action was a no-op.
func (b *Bot) dispatchGrocery(ctx context.Context, chatID int64, userID string, action planner.Action, unchanged string) {
	state, changed, err := b.app.Update(ctx, userID, action)
	if err != nil {
		b.replyError(chatID, "Could not update your list", err)
		return
	}
	if !changed {
		b.reply(chatID, unchanged)
		return
	}
	b.reply(chatID, shopping.FormatMarkdown(state.GroceryList))
}

func (b *Bot) handleAddCustom(ctx context.Context, chatID int64, userID, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /add <item>")
		return
	}
	b.dispatchGrocery(ctx, chatID, userID, planner.AddCustomGroceryItem{Text: args},
		fmt.Sprintf("_%s is already on your list._", escape(args)))
}

func (b *Bot) handleToggle(ctx context.Context, chatID int64, userID, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /toggle <item>")
		return
	}
	b.dispatchGrocery(ctx, chatID, userID, planner.ToggleGroceryItem{Original: args},
		fmt.Sprintf("_No item called %s._", escape(args)))
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, userID, args string) {
	original, newText, err := parseEdit(args)
	if err != nil {
		b.reply(chatID, escape(err.Error()))
		return
	}
	b.dispatchGrocery(ctx, chatID, userID, planner.EditGroceryItem{Original: original, NewText: newText},
		"_Nothing changed. Check the item name and that the new text is not already on the list._")
}

func (b *Bot) handleClear(ctx context.Context, chatID int64, userID string) {
	if _, err := b.app.Dispatch(ctx, userID, planner.ClearGroceries{}); err != nil {
		b.replyError(chatID, "Could not clear your list", err)
		return
	}
	b.reply(chatID, "🧹 Grocery list cleared.")
}

// Recipes

func (b *Bot) handleSearch(ctx context.Context, chatID int64, userID, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /search <query>")
		return
	}
	result, err := b.app.SearchRecipes(ctx, userID, args, "", 0)
	if err != nil {
		b.replyError(chatID, "Search failed", err)
		return
	}
	b.reply(chatID, formatSummaries(fmt.Sprintf("Results for \"%s\"", args), result.Results))
}

func (b *Bot) handleIngredients(ctx context.Context, chatID int64, userID, args string) {
	ingredients := parseIngredients(args)
	if len(ingredients) == 0 {
		b.reply(chatID, "Usage: /ingredients eggs, spinach, feta")
		return
	}
	results, err := b.app.FindByIngredients(ctx, userID, spoonacular.IngredientQuery{Ingredients: ingredients})
	if err != nil {
		b.replyError(chatID, "Search failed", err)
		return
	}
	b.reply(chatID, formatSummaries("Recipes from your pantry", results))
}

func (b *Bot) handleRandom(ctx context.Context, chatID int64, userID string) {
	recipes, err := b.app.RandomRecipes(ctx, userID, 3)
	if err != nil {
		b.replyError(chatID, "Could not fetch ideas", err)
		return
	}
	b.reply(chatID, formatRecipes("Some ideas", recipes))
}

func (b *Bot) handleRecipe(ctx context.Context, chatID int64, userID, args string) {
	id, err := parseRecipeID(args)
	if err != nil {
		b.reply(chatID, "Usage: /recipe <recipe id>")
		return
	}
	rec, err := b.app.Recipe(ctx, userID, id)
	if err != nil {
		b.replyError(chatID, "Could not load the recipe", err)
		return
	}
	b.reply(chatID, formatRecipe(rec))
}

func (b *Bot) handleRate(ctx context.Context, chatID int64, userID, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(chatID, "Usage: /rate <recipe id> <1-5>")
		return
	}
	id, err := parseRecipeID(fields[0])
	if err != nil {
		b.reply(chatID, escape(err.Error()))
		return
	}
	// A non-number becomes 0 and is rejected as out of range.
	stars, _ := strconv.Atoi(fields[1])

	summary, err := b.app.Rate(ctx, userID, id, stars)
	if errors.Is(err, rating.ErrInvalidRating) {
		b.reply(chatID, "Ratings go from 1 to 5 stars.")
		return
	}
	if err != nil {
		b.replyError(chatID, "Could not save your rating", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Thanks! %s", ratingLabel(summary.AverageRating, summary.RatingCount)))
}

func (b *Bot) handleProducts(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /products <query>")
		return
	}
	result, err := b.app.SearchProducts(ctx, args)
	if err != nil {
		b.replyError(chatID, "Product search failed", err)
		return
	}
	b.reply(chatID, formatProducts(args, result.Products))
}

// Cook mode

func (b *Bot) handleCook(ctx context.Context, chatID int64, args string) {
	id, err := parseRecipeID(args)
	if err != nil {
		b.reply(chatID, "Usage: /cook <recipe id>")
		return
	}
	session, err := b.app.CookSession(ctx, id)
	if errors.Is(err, cookmode.ErrNoInstructions) {
		b.reply(chatID, "_No step-by-step instructions for this recipe._")
		return
	}
	if err != nil {
		b.replyError(chatID, "Could not start cook mode", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatCookStep(session))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = cookKeyboard(session)
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send cook step", "chat_id", chatID, "error", err)
		return
	}
	b.narrate(ctx, chatID, session)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer first so the client stops its spinner.
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	if query.Message == nil {
		return
	}
	recipeID, index, voice, err := parseCookData(query.Data)
	if err != nil {
		slog.Warn("Ignoring callback", "data", query.Data, "error", err)
		return
	}

	session, err := b.app.CookSession(ctx, recipeID)
	if err != nil {
		b.replyError(query.Message.Chat.ID, "Could not load the recipe", err)
		return
	}
	if !session.Goto(index) {
		return
	}
	session.SetVoice(voice)

	edit := tgbotapi.NewEditMessageTextAndMarkup(
		query.Message.Chat.ID, query.Message.MessageID, formatCookStep(session), cookKeyboard(session))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		slog.Error("Failed to update cook step", "error", err)
	}

	// Both a step change with voice on and switching voice on read the step aloud.
	if voice {
		b.narrate(ctx, query.Message.Chat.ID, session)
	}
}

func (b *Bot) narrate(ctx context.Context, chatID int64, session *cookmode.Session) {
	a := b.app.Assistant()
	if a == nil || !session.VoiceOn() {
		return
	}
	pcm := session.Narrate(ctx, a)
	if len(pcm) == 0 {
		return
	}
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("step-%d.wav", session.Index()+1),
		Bytes: cookmode.WAV(pcm, llm.SpeechSampleRate, 1),
	})
	audio.Title = session.Label()
	if _, err := b.api.Send(audio); err != nil {
		slog.Error("Failed to send narration", "chat_id", chatID, "error", err)
	}
}
