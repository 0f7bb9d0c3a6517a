package language

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	diacriticWeight = 3
	functionWeight  = 2
	domainWeight    = 5

	// minimum normalized score a language needs to beat English
	heuristicThreshold = 1.5
)

type lexicon struct {
	diacritics map[rune]bool
	function   map[string]bool
	domain     map[string]bool
}

func set[T comparable](items ...T) map[T]bool {
	m := make(map[T]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var sharedDiacritics = set('á', 'é', 'í', 'ó', 'ú')

var portuguese = lexicon{
	diacritics: set('ã', 'õ', 'ç', 'â', 'ê', 'ô', 'à'),
	function: set("não", "um", "uma", "uns", "umas", "do", "da", "dos", "das", "no", "na", "nos", "nas",
		"com", "seu", "sua", "seus", "suas", "ele", "ela", "eles", "muito", "também", "isso", "este",
		"esta", "você", "são", "está", "pelo", "pela", "ao", "aos", "mas", "onde", "quem", "em"),
	domain: set("taverna", "guerreiro", "guerreira", "personagem", "feiticeiro", "feiticeira", "ladino",
		"anão", "missão", "aventureiro", "aventureiros", "masmorra", "bruxo", "bruxa", "clérigo",
		"bardo", "mago", "maga", "cavaleiro", "floresta", "espada", "tesouro", "aldeia", "masmorras"),
}

var spanish = lexicon{
	diacritics: set('ñ', '¿', '¡'),
	function: set("el", "los", "las", "un", "una", "unos", "unas", "del", "al", "y", "con", "su", "sus",
		"él", "ella", "ellos", "muy", "también", "pero", "es", "está", "usted", "son", "este", "esta",
		"donde", "quien", "hay", "en"),
	domain: set("taberna", "guerrero", "guerrera", "personaje", "hechicero", "hechicera", "pícaro",
		"enano", "misión", "aventurero", "aventureros", "mazmorra", "brujo", "bruja", "clérigo",
		"bardo", "mago", "maga", "caballero", "bosque", "espada", "tesoro", "aldea", "mazmorras"),
}

// Heuristic scores text against weighted Portuguese and Spanish lexicons and
// returns English unless one of them clearly wins.
func Heuristic(text string) Language {
	text = strings.ToLower(strings.TrimSpace(text))
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return English
	}

	pt, es := score(text)

	// per ten characters
	norm := float64(n) / 10
	if norm < 1 {
		norm = 1
	}
	ptScore, esScore := float64(pt)/norm, float64(es)/norm

	switch {
	case ptScore > esScore && ptScore > heuristicThreshold:
		return Portuguese
	case esScore > ptScore && esScore > heuristicThreshold:
		return Spanish
	default:
		return English
	}
}

func score(text string) (pt, es int) {
	for _, r := range text {
		switch {
		case sharedDiacritics[r]:
			pt += diacriticWeight
			es += diacriticWeight
		case portuguese.diacritics[r]:
			pt += diacriticWeight
		case spanish.diacritics[r]:
			es += diacriticWeight
		}
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if portuguese.function[w] {
			pt += functionWeight
		}
		if spanish.function[w] {
			es += functionWeight
		}
		if portuguese.domain[w] {
			pt += domainWeight
		}
		if spanish.domain[w] {
			es += domainWeight
		}
	}
	return pt, es
}
