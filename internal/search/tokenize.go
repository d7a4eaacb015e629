package search

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\w{2,}`)

// stopwords excluded from scoring: common English function words.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an is are was were be been being have has had do does did
		will would could should may might shall can need dare ought used
		to of in for on with at by from as into through during before
		after above below between out off over under again further then
		once here there when where why how all both each few more most
		other some such no nor not only own same so than too very just
		don now and but or if while that this it its he she they them
		his her their what which who whom these those am about up down
		we our you your my me i`) {
		stopwords[w] = struct{}{}
	}
}

// tokenize lowercases text into terms of two or more word characters,
// dropping stopwords and pure numbers.
func tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if isDigits(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
