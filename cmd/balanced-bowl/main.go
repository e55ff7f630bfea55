package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"balanced-bowl/internal/app"
	"balanced-bowl/internal/auth"
	"balanced-bowl/internal/config"
	"balanced-bowl/internal/database"
	"balanced-bowl/internal/logging"
	"balanced-bowl/internal/metrics"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/rating"
	"balanced-bowl/internal/recipe"
	"balanced-bowl/internal/shopping"
	"balanced-bowl/internal/spoonacular"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		fatal("Failed to load config", err)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		fatal("Failed to initialize database", err)
	}
	defer db.Close()

	recipeRepo := recipe.NewRepository(db.SQL)
	stateRepo := planner.NewStateRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	recipes := spoonacular.NewCachingClient(spoonacular.NewClient(cfg), recipeRepo, cfg.RecipeCacheTTL)
	sessions := app.NewSessions(stateRepo, nil)
	defer sessions.Close()
	application := app.NewApp(recipes, rating.NewAggregator(db.SQL), sessions, nil, metricsStore)

	switch os.Args[1] {
	case "search":
		cmd := flag.NewFlagSet("search", flag.ExitOnError)
		diet := cmd.String("diet", "", "Diet filter, e.g. vegetarian")
		offset := cmd.Int("offset", 0, "Result offset for paging")
		user := cmd.String("user", "cli", "User whose ratings are shown")
		cmd.Parse(os.Args[2:])

		res, err := application.SearchRecipes(ctx, *user, strings.Join(cmd.Args(), " "), *diet, *offset)
		if err != nil {
			fatal("Search failed", err)
		}
		printSummaries(res.Results)
		fmt.Printf("\n%d of %d results\n", len(res.Results), res.TotalResults)

	case "ingredients":
		cmd := flag.NewFlagSet("ingredients", flag.ExitOnError)
		number := cmd.Int("number", 10, "Maximum number of recipes")
		user := cmd.String("user", "cli", "User whose ratings are shown")
		cmd.Parse(os.Args[2:])

		list, err := application.FindByIngredients(ctx, *user, spoonacular.IngredientQuery{
			Ingredients: cmd.Args(),
			Number:      *number,
		})
		if err != nil {
			fatal("Ingredient search failed", err)
		}
		printSummaries(list)

	case "random":
		cmd := flag.NewFlagSet("random", flag.ExitOnError)
		count := cmd.Int("count", 5, "Number of recipes")
		cmd.Parse(os.Args[2:])

		list, err := application.RandomRecipes(ctx, "cli", *count)
		if err != nil {
			fatal("Random recipes failed", err)
		}
		for _, r := range list {
			fmt.Printf("#%-8d %s (%d min)\n", r.ID, r.Title, r.ReadyInMinutes)
		}

	case "recipe":
		cmd := flag.NewFlagSet("recipe", flag.ExitOnError)
		id := cmd.Int64("id", 0, "Recipe ID")
		cmd.Parse(os.Args[2:])

		rec, err := application.Recipe(ctx, "cli", *id)
		if err != nil {
			fatal("Failed to fetch recipe", err)
		}
		printRecipe(rec)

	case "products":
		cmd := flag.NewFlagSet("products", flag.ExitOnError)
		cmd.Parse(os.Args[2:])

		res, err := application.SearchProducts(ctx, strings.Join(cmd.Args(), " "))
		if err != nil {
			fatal("Product search failed", err)
		}
		for _, p := range res.Products {
			fmt.Printf("#%-8d %s\n", p.ID, p.Title)
		}

	case "plan":
		cmd := flag.NewFlagSet("plan", flag.ExitOnError)
		user := cmd.String("user", "", "User ID, e.g. tg:12345")
		cmd.Parse(os.Args[2:])
		requireUser(*user)

		state, err := application.State(ctx, *user)
		if err != nil {
			fatal("Failed to load state", err)
		}
		printPlan(state)

	case "groceries":
		cmd := flag.NewFlagSet("groceries", flag.ExitOnError)
		user := cmd.String("user", "", "User ID, e.g. tg:12345")
		fromPlan := cmd.Bool("from-plan", false, "Add the ingredients of every planned meal first")
		cmd.Parse(os.Args[2:])
		requireUser(*user)

		var state planner.AppState
		if *fromPlan {
			state, err = application.GenerateGroceryList(ctx, *user)
		} else {
			state, err = application.State(ctx, *user)
		}
		if err != nil {
			fatal("Failed to load grocery list", err)
		}
		fmt.Print(shopping.FormatText(state.GroceryList))

	case "token":
		cmd := flag.NewFlagSet("token", flag.ExitOnError)
		user := cmd.String("user", "", "User ID to issue the token for; a new one when empty")
		cmd.Parse(os.Args[2:])

		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
		var token string
		if *user == "" {
			token, *user, err = jwtManager.NewSession()
		} else {
			token, err = jwtManager.Generate(*user)
		}
		if err != nil {
			fatal("Failed to issue token", err)
		}
		fmt.Printf("user:  %s\ntoken: %s\n", *user, token)

	case "prune-sessions":
		cmd := flag.NewFlagSet("prune-sessions", flag.ExitOnError)
		olderThan := cmd.Duration("older-than", cfg.SessionTTL, "Delete sessions untouched for this long")
		cmd.Parse(os.Args[2:])

		affected, err := stateRepo.DeleteStale(ctx, time.Now().Add(-*olderThan))
		if err != nil {
			fatal("Prune failed", err)
		}
		fmt.Printf("Pruned %d sessions.\n", affected)

	case "purge-cache":
		cmd := flag.NewFlagSet("purge-cache", flag.ExitOnError)
		olderThan := cmd.Duration("older-than", cfg.RecipeCacheTTL, "Delete recipes cached longer ago than this")
		cmd.Parse(os.Args[2:])

		affected, err := recipeRepo.Purge(ctx, time.Now().Add(-*olderThan))
		if err != nil {
			fatal("Purge failed", err)
		}
		fmt.Printf("Purged %d cached recipes.\n", affected)

	case "metrics-cleanup":
		cmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cmd.Int("days", 30, "Keep records for the last N days")
		cmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(ctx, *days)
		if err != nil {
			fatal("Cleanup failed", err)
		}
		fmt.Printf("Cleanup complete. Removed %d old records.\n", affected)

	default:
		printUsage()
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func requireUser(user string) {
	if user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}
}

func printSummaries(list []recipe.Summary) {
	if len(list) == 0 {
		fmt.Println("No recipes found.")
		return
	}
	for _, s := range list {
		line := fmt.Sprintf("#%-8d %s", s.ID, s.Title)
		if s.RatingCount > 0 {
			line += fmt.Sprintf("  [%.1f★ from %d]", s.AverageRating, s.RatingCount)
		}
		fmt.Println(line)
	}
}

func printRecipe(rec *recipe.Recipe) {
	fmt.Printf("%s (#%d)\n", rec.Title, rec.ID)
	fmt.Printf("Ready in %d min, %d servings, %.0f kcal\n", rec.ReadyInMinutes, rec.Servings, rec.Calories())
	if rec.RatingCount > 0 {
		fmt.Printf("Rated %.1f from %d ratings\n", rec.AverageRating, rec.RatingCount)
	}
	fmt.Println("\nIngredients:")
	for _, ing := range rec.ExtendedIngredients {
		fmt.Printf("  - %s\n", ing.Original)
	}
	if steps := rec.Steps(); len(steps) > 0 {
		fmt.Println("\nSteps:")
		for _, s := range steps {
			fmt.Printf("  %d. %s\n", s.Number, s.Step)
		}
	}
}

func printPlan(state planner.AppState) {
	for _, day := range planner.Days {
		for _, mt := range planner.MealTypes {
			if m, ok := state.Meal(day, mt); ok {
				fmt.Printf("%-10s %-10s #%-8d %s\n", day, mt, m.Recipe.ID, m.Recipe.Title)
			}
		}
	}
	if len(state.PlannedMeals) == 0 {
		fmt.Println("Nothing planned.")
	}
}

func printUsage() {
	fmt.Println("Usage: balanced-bowl <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  search [-diet d] [-offset n] <query>     Search recipes")
	fmt.Println("  ingredients [-number n] <a> <b> ...      Recipes from ingredients on hand")
	fmt.Println("  random [-count n]                        Random recipes")
	fmt.Println("  recipe -id <id>                          Show one recipe")
	fmt.Println("  products <query>                         Search grocery products")
	fmt.Println("  plan -user <id>                          Show a user's weekly plan")
	fmt.Println("  groceries -user <id> [-from-plan]        Show (or build) a user's grocery list")
	fmt.Println("  token [-user <id>]                       Issue an API session token")
	fmt.Println("  prune-sessions [-older-than d]           Delete abandoned planner sessions")
	fmt.Println("  purge-cache [-older-than d]              Delete stale cached recipes")
	fmt.Println("  metrics-cleanup [-days n]                Delete old usage records")
}
