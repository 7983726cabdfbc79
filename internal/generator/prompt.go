package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/jotdown/pkg/types"
)

// MaxGeneratedCategories caps how many categories one generation may produce
const MaxGeneratedCategories = 8

func buildCategoryPrompt(profile string) string {
	var sb strings.Builder

	sb.WriteString("Suggest categories for organizing the short notes of the person described below. Return JSON only.\n\n")
	sb.WriteString("Profile:\n")
	sb.WriteString(profile)
	sb.WriteString("\n\n")
	sb.WriteString(`Return a JSON object with this structure:
{
  "categories": [
    {"name": "Music", "description": "Activities involving music listening or creation"}
  ]
}

Rules:
- Suggest 3-6 categories that cover the areas of life in the profile
- Names are one or two words in Title Case
- Descriptions are one sentence describing which notes belong in the category
- Do not include a catch-all category such as "Other" or "Misc"

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func buildAnswerPrompt(query string, candidates []types.Thought) string {
	var sb strings.Builder

	sb.WriteString("Answer the question using only the notes below. ")
	sb.WriteString("If the notes do not contain the answer, say so briefly. Reply in at most three sentences.\n\n")
	sb.WriteString("Notes:\n")
	for i, t := range candidates {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, t.CreatedAt.Format("2006-01-02"), t.Content)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)

	return sb.String()
}

type categoryPayload struct {
	Categories []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"categories"`
}

// parseCategories decodes model output into categories.
// Markdown fences are stripped, empty entries dropped, names deduplicated
// case-insensitively and the catch-all sentinel removed.
func parseCategories(resp string) ([]types.Category, error) {
	resp = stripFences(resp)

	var payload categoryPayload
	if err := json.Unmarshal([]byte(resp), &payload); err != nil {
		return nil, fmt.Errorf("%w: parse categories json: %v", ErrProviderFailed, err)
	}

	out := make([]types.Category, 0, len(payload.Categories))
	for _, c := range payload.Categories {
		name := strings.TrimSpace(c.Name)
		desc := strings.TrimSpace(c.Description)
		if name == "" || desc == "" || types.IsOtherName(name) {
			continue
		}
		if _, dup := types.FindByName(out, name); dup {
			continue
		}
		out = append(out, types.Category{Name: name, Description: desc, IsActive: true})
		if len(out) == MaxGeneratedCategories {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable categories in response", ErrProviderFailed)
	}
	return out, nil
}

func stripFences(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

func cleanAnswer(resp string) (string, error) {
	answer := strings.TrimSpace(resp)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", ErrProviderFailed)
	}
	return answer, nil
}
