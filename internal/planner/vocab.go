package planner

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/retail-analytics/internal/store"
)

// defaultCategories is the compiled-in fallback vocabulary, used when the
// store has no readable category table.
var defaultCategories = []string{
	"Beverages",
	"Condiments",
	"Confections",
	"Dairy Products",
	"Grains/Cereals",
	"Meat/Poultry",
	"Produce",
	"Seafood",
}

// Vocabulary is the closed set of category names the planner may emit.
// Matching is case-insensitive; emitted names are canonical title case.
type Vocabulary struct {
	canonical []string
	lookup    map[string]string // lowercased -> canonical
}

// NewVocabulary canonicalizes the given category names into a closed
// vocabulary.
func NewVocabulary(categories []string) Vocabulary {
	caser := cases.Title(language.English)
	v := Vocabulary{lookup: make(map[string]string, len(categories))}
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		canon := caser.String(c)
		key := strings.ToLower(canon)
		if _, seen := v.lookup[key]; seen {
			continue
		}
		v.lookup[key] = canon
		v.canonical = append(v.canonical, canon)
	}
	return v
}

// Categories returns the canonical names in registration order.
func (v Vocabulary) Categories() []string {
	return v.canonical
}

// Match returns the canonical categories whose names appear in text,
// case-insensitively, in vocabulary order.
func (v Vocabulary) Match(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, canon := range v.canonical {
		if strings.Contains(lower, strings.ToLower(canon)) {
			out = append(out, canon)
		}
	}
	return out
}

// LoadVocabulary builds the category vocabulary from the store's category
// table, falling back to the compiled-in list when the table is absent or
// unreadable. The planner never fails for lack of vocabulary.
func LoadVocabulary(ctx context.Context, st store.Store, schema store.Schema) Vocabulary {
	if !schema.Has("Categories") {
		zap.L().Debug("planner: no Categories table, using default vocabulary")
		return NewVocabulary(defaultCategories)
	}
	res, err := st.Query(ctx, `SELECT CategoryName FROM Categories ORDER BY CategoryID`)
	if err != nil || len(res.Rows) == 0 {
		zap.L().Warn("planner: category table unreadable, using default vocabulary", zap.Error(err))
		return NewVocabulary(defaultCategories)
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if name, ok := row["CategoryName"].(string); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return NewVocabulary(defaultCategories)
	}
	return NewVocabulary(names)
}
