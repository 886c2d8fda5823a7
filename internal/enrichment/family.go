// Package enrichment holds offline jobs that fill denormalized catalog columns.
package enrichment

import (
	"strings"
	"unicode"
)

// Spirit families written to ingredients.family.
const (
	FamilyWhiskey  = "whiskey"
	FamilyRum      = "rum"
	FamilyGin      = "gin"
	FamilyVodka    = "vodka"
	FamilyTequila  = "tequila"
	FamilyBrandy   = "brandy"
	FamilyLiqueur  = "liqueur"
	FamilyVermouth = "vermouth"
	FamilyBitters  = "bitters"
	FamilyWine     = "wine"
)

type familyRule struct {
	family   string
	keywords []string
}

// Rules are checked in order; the first keyword hit wins. Liqueurs come before
// base spirits so that "coffee liqueur" or "cherry brandy liqueur" do not
// classify as the spirit they mention.
var familyRules = []familyRule{
	{FamilyBitters, []string{"bitters", "биттер"}},
	{FamilyVermouth, []string{"vermouth", "вермут", "lillet", "dubonnet"}},
	{FamilyLiqueur, []string{
		"liqueur", "ликер", "ликёр", "triple sec", "curacao", "curaçao", "cointreau", "amaretto",
		"kahlua", "baileys", "chartreuse", "benedictine", "maraschino", "sambuca", "schnapps",
		"campari", "aperol", "galliano", "frangelico", "midori", "creme de", "crème de", "limoncello",
	}},
	{FamilyWhiskey, []string{"whisky", "whiskey", "bourbon", "scotch", "rye", "виски", "бурбон", "скотч"}},
	{FamilyRum, []string{"rum", "cachaca", "cachaça", "ром", "кашаса"}},
	{FamilyGin, []string{"gin", "genever", "джин"}},
	{FamilyVodka, []string{"vodka", "водка"}},
	{FamilyTequila, []string{"tequila", "mezcal", "текила", "мескаль"}},
	{FamilyBrandy, []string{"brandy", "cognac", "armagnac", "pisco", "calvados", "бренди", "коньяк", "кальвадос", "писко"}},
	{FamilyWine, []string{"wine", "champagne", "prosecco", "cava", "sherry", "port", "вино", "шампанское", "просекко", "херес", "портвейн"}},
}

// SpiritFamily classifies an ingredient name. It returns "" when no rule matches.
func SpiritFamily(name string) string {
	words := tokenize(name)
	if len(words) == 0 {
		return ""
	}
	joined := " " + strings.Join(words, " ") + " "

	for _, rule := range familyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(joined, " "+kw+" ") || (!strings.Contains(kw, " ") && hasPrefixWord(words, kw)) {
				return rule.family
			}
		}
	}
	return ""
}

// hasPrefixWord matches plural forms ("vodkas", "bourbons") by prefix for
// keywords of four or more letters.
func hasPrefixWord(words []string, kw string) bool {
	if len([]rune(kw)) < 4 {
		return false
	}
	for _, w := range words {
		if strings.HasPrefix(w, kw) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
