package shopping

import (
	"fmt"
	"sort"
	"strings"

	"balanced-bowl/internal/planner"
)

// Aisle is a group of grocery items found in the same store aisle.
type Aisle struct {
	Name  string                `json:"name"`
	Items []planner.GroceryItem `json:"items"`
}

// GroupByAisle groups items by aisle. Aisles are sorted by name and items by their Original text.
// Items without an aisle are grouped under "Uncategorized".
func GroupByAisle(items []planner.GroceryItem) []Aisle {
	byAisle := make(map[string][]planner.GroceryItem)
	for _, item := range items {
		name := item.Aisle
		if name == "" {
			name = planner.UncategorizedAisle
		}
		byAisle[name] = append(byAisle[name], item)
	}

	aisles := make([]Aisle, 0, len(byAisle))
	for name, group := range byAisle {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Original < group[j].Original
		})
		aisles = append(aisles, Aisle{Name: name, Items: group})
	}
	sort.Slice(aisles, func(i, j int) bool {
		return aisles[i].Name < aisles[j].Name
	})
	return aisles
}

// Remaining counts the items not yet checked off.
func Remaining(items []planner.GroceryItem) int {
	n := 0
	for _, item := range items {
		if !item.Checked {
			n++
		}
	}
	return n
}

// FormatMarkdown renders the list for Telegram's Markdown parse mode.
func FormatMarkdown(items []planner.GroceryItem) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	if len(items) == 0 {
		sb.WriteString("\n_Your grocery list is empty._\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("_%d of %d items left_\n", Remaining(items), len(items)))

	for _, aisle := range GroupByAisle(items) {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", escapeMarkdown(aisle.Name)))
		for _, item := range aisle.Items {
			mark := "☐"
			if item.Checked {
				mark = "✅"
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", mark, escapeMarkdown(item.Original)))
		}
	}
	return sb.String()
}

// FormatText renders the list as plain text for printing.
func FormatText(items []planner.GroceryItem) string {
	var sb strings.Builder
	sb.WriteString("Shopping List\n")
	for _, aisle := range GroupByAisle(items) {
		sb.WriteString("\n" + aisle.Name + "\n")
		for _, item := range aisle.Items {
			box := "[ ]"
			if item.Checked {
				box = "[x]"
			}
			sb.WriteString(fmt.Sprintf("  %s %s\n", box, item.Original))
		}
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
