package transaction

import "strings"

// Category is one of a closed set of spend labels.
type Category string

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryShopping       Category = "shopping"
	CategoryHousing        Category = "housing"
	CategoryEntertainment  Category = "entertainment"
	CategoryHealthcare     Category = "healthcare"
	CategoryOther          Category = "other"
)

type categoryRule struct {
	category Category
	keywords []string
}

// Rules are tried in order; the first rule with a keyword contained in the
// lower-cased description wins.
var categoryRules = []categoryRule{
	{CategoryFood, []string{"restaurant", "cafe", "food", "starbucks", "mcdonald", "pizza", "grocery", "market", "whole foods"}},
	{CategoryTransportation, []string{"gas", "fuel", "uber", "lyft", "taxi", "parking", "transit", "subway", "bus"}},
	{CategoryShopping, []string{"amazon", "walmart", "target", "shopping", "retail"}},
	{CategoryHousing, []string{"rent", "mortgage", "utilities", "electric", "water", "internet", "cable", "phone"}},
	{CategoryEntertainment, []string{"entertainment", "movie", "netflix", "spotify", "gaming", "gym", "fitness", "subscription"}},
	{CategoryHealthcare, []string{"medical", "doctor", "pharmacy", "hospital", "health", "dental"}},
}

// Categorize maps a free-text description to a category. It never fails;
// descriptions without a keyword are CategoryOther.
func Categorize(description string) Category {
	desc := strings.ToLower(description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// Categories returns the closed label set in priority order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.category)
	}
	return append(out, CategoryOther)
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}
