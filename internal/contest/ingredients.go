// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import "strings"

// TokenizeIngredients splits free text on commas and semicolons and returns
// the trimmed, lower-cased, non-empty tokens.
func TokenizeIngredients(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	})

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToLower(strings.TrimSpace(p)); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// MissingIngredients returns the required tokens that are not a substring
// of any recipe token. An empty result means the recipe qualifies.
func MissingIngredients(required, recipeIngredients string) []string {
	have := TokenizeIngredients(recipeIngredients)

	var missing []string
	for _, req := range TokenizeIngredients(required) {
		found := false
		for _, h := range have {
			if strings.Contains(h, req) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, req)
		}
	}
	return missing
}
