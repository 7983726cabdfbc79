package generator

import (
	"context"
	"strings"
	"unicode"

	"github.com/dshills/jotdown/pkg/types"
)

// ProviderLocal selects the offline generator, which needs no credentials
const ProviderLocal = "local"

// DefaultCategories is the starter set offered when nothing better is known
var DefaultCategories = []types.Category{
	{Name: "Class", Description: "Related to school or educational classes", IsActive: true},
	{Name: "Work", Description: "Tasks and projects related to professional work", IsActive: true},
	{Name: "Music", Description: "Activities involving music listening or creation", IsActive: true},
	{Name: "Personal", Description: "Personal errands and self-care activities", IsActive: true},
}

type catalogEntry struct {
	category types.Category
	prefixes []string
}

// catalog maps profile word prefixes to categories, in output order
var catalog = []catalogEntry{
	{DefaultCategories[0], []string{"class", "school", "student", "stud", "course", "universit", "college", "homework", "exam", "lectur"}},
	{DefaultCategories[1], []string{"work", "job", "office", "career", "engineer", "manag", "project", "client", "startup"}},
	{DefaultCategories[2], []string{"music", "guitar", "piano", "cello", "violin", "band", "song", "sing", "drum", "concert"}},
	{types.Category{Name: "Fitness", Description: "Exercise, sports and physical health", IsActive: true},
		[]string{"gym", "run", "fitness", "workout", "sport", "yoga", "climb", "swim", "cycl", "hik"}},
	{types.Category{Name: "Reading", Description: "Books, articles and things to read", IsActive: true},
		[]string{"book", "read", "novel", "literat", "poetr"}},
	{types.Category{Name: "Cooking", Description: "Recipes, meals and food ideas", IsActive: true},
		[]string{"cook", "recipe", "food", "bak", "chef", "meal"}},
	{types.Category{Name: "Travel", Description: "Trips, destinations and travel plans", IsActive: true},
		[]string{"travel", "trip", "flight", "vacation", "abroad"}},
	{DefaultCategories[3], nil},
}

// LocalProvider is an offline generator. Categories come from a keyword catalog
// matched against the profile; answers are extractive summaries of the candidates.
type LocalProvider struct{}

// NewLocalProvider creates the offline generator
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) GenerateCategories(ctx context.Context, profile string) ([]types.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(strings.ToLower(profile), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var out []types.Category
	matched := 0
	for _, entry := range catalog {
		if entry.prefixes == nil || matchesAny(words, entry.prefixes) {
			out = append(out, entry.category)
			if entry.prefixes != nil {
				matched++
			}
		}
	}

	if matched == 0 {
		out = append([]types.Category(nil), DefaultCategories...)
	}
	return out, nil
}

func matchesAny(words, prefixes []string) bool {
	for _, w := range words {
		for _, p := range prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}

func (l *LocalProvider) SynthesizeAnswer(ctx context.Context, query string, candidates []types.Thought) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "None of your thoughts seem related to that.", nil
	}

	parts := make([]string, 0, len(candidates))
	for _, t := range candidates {
		parts = append(parts, strings.TrimRight(strings.TrimSpace(t.Content), "."))
	}
	return "From your thoughts: " + strings.Join(parts, "; ") + ".", nil
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Close() error {
	return nil
}
