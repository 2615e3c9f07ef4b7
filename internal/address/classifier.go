package address

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// streetWindowRunes - на каком расстоянии от кандидата ищется тип улицы.
const streetWindowRunes = 20

// maxCandidateWords ограничивает длину кандидата: "нижний новгород", "набережные челны".
const maxCandidateWords = 3

var (
	// г. Новосибирск, город Саратов, city. Novosibirsk
	cityMarkerRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:город|г\.|г\s|city\.?|g\.)\s*(\p{L}[\p{L}\s\-]*)`)

	// Волгоградская обл., Краснодарский край, Татарстан респ., Volgogradskaya oblast
	adminSuffixRe = regexp.MustCompile(`(\p{L}[\p{L}\-]*(?:\s+\p{L}[\p{L}\-]*)?)\s+(?:область|обл\.?|oblast|obl\.?|province|край|krai|kray|territory|республика|респ\.?|republic|автономный\s+округ|autonomous\s+okrug|ао)(?:$|[^\p{L}\p{N}])`)

	// Республика Татарстан, респ. Башкортостан, Republic of Tatarstan
	adminPrefixRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:республика|респ\.?|republic(?:\s+of)?)\s+(\p{L}[\p{L}\-]*(?:\s+\p{L}[\p{L}\-]*)?)`)

	adminKeywords = map[string]struct{}{
		"область": {}, "обл": {}, "обл.": {}, "oblast": {}, "obl": {}, "obl.": {}, "province": {},
		"край": {}, "krai": {}, "kray": {}, "territory": {},
		"республика": {}, "респ": {}, "респ.": {}, "republic": {},
		"автономный": {}, "autonomous": {}, "ао": {},
	}
)

type candidate struct {
	text       string
	start, end int
}

// Classifier определяет, относится ли адрес к региону за пределами Москвы и области.
type Classifier struct {
	lex *Lexicon
}

func NewClassifier(lex *Lexicon) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Classifier{lex: lex}
}

// IsDistant возвращает true, если адрес явно указывает на другой город или регион.
// Адрес с упоминанием Москвы или Московской области всегда считается местным.
func (c *Classifier) IsDistant(address string) bool {
	folded := Fold(address)
	if strings.TrimSpace(folded) == "" {
		return false
	}
	if c.lex.HasLocalIndicator(folded) {
		return false
	}

	for _, cand := range c.candidates(folded) {
		if c.lex.IsSatellite(cand.text) {
			continue
		}
		if _, ok := c.lex.MatchDistant(cand.text); !ok {
			continue
		}
		if c.nearStreetType(folded, cand) {
			// "ул. Саратовская" - название улицы, а не регион
			continue
		}
		return true
	}

	return c.bareSegmentMatch(folded)
}

// candidates извлекает топонимы, помеченные "г.", "обл.", "край", "респ." и т.п.
func (c *Classifier) candidates(folded string) []candidate {
	var out []candidate

	for _, m := range cityMarkerRe.FindAllStringSubmatchIndex(folded, -1) {
		if cand, ok := c.trimCandidate(folded, m[2], m[3]); ok {
			out = append(out, cand)
		}
	}
	for _, m := range adminSuffixRe.FindAllStringSubmatchIndex(folded, -1) {
		if cand, ok := c.trimCandidate(folded, m[2], m[3]); ok {
			out = append(out, cand)
		}
	}
	for _, m := range adminPrefixRe.FindAllStringSubmatchIndex(folded, -1) {
		if cand, ok := c.trimCandidate(folded, m[2], m[3]); ok {
			out = append(out, cand)
		}
	}

	return out
}

// trimCandidate обрезает захваченный текст на первом административном слове
// или типе улицы и ограничивает число слов.
func (c *Classifier) trimCandidate(folded string, start, end int) (candidate, bool) {
	text := folded[start:end]

	words := 0
	cut := len(text)
	offset := 0
	for offset < len(text) {
		// пропуск пробелов
		for offset < len(text) {
			r, size := utf8.DecodeRuneInString(text[offset:])
			if !unicode.IsSpace(r) {
				break
			}
			offset += size
		}
		if offset >= len(text) {
			break
		}
		wordStart := offset
		for offset < len(text) {
			r, size := utf8.DecodeRuneInString(text[offset:])
			if unicode.IsSpace(r) {
				break
			}
			offset += size
		}
		word := text[wordStart:offset]
		if _, ok := adminKeywords[word]; ok || c.isStreetWord(word) || words == maxCandidateWords {
			cut = wordStart
			break
		}
		words++
	}

	trimmed := strings.TrimRight(text[:cut], " -")
	if trimmed == "" {
		return candidate{}, false
	}
	normalized := strings.Join(strings.Fields(trimmed), " ")
	return candidate{text: normalized, start: start, end: start + len(trimmed)}, true
}

func (c *Classifier) isStreetWord(word string) bool {
	return c.lex.streetRe.MatchString(word)
}

// nearStreetType ищет тип улицы рядом с кандидатом в пределах того же
// сегмента адреса (между запятыми) и не дальше streetWindowRunes символов.
func (c *Classifier) nearStreetType(folded string, cand candidate) bool {
	for _, m := range c.lex.streetRe.FindAllStringSubmatchIndex(folded, -1) {
		wordStart, wordEnd := m[2], m[3]

		switch {
		case wordEnd <= cand.start:
			gap := folded[wordEnd:cand.start]
			if !strings.Contains(gap, ",") && utf8.RuneCountInString(gap) <= streetWindowRunes {
				return true
			}
		case wordStart >= cand.end:
			gap := folded[cand.end:wordStart]
			if !strings.Contains(gap, ",") && utf8.RuneCountInString(gap) <= streetWindowRunes {
				return true
			}
		}
	}
	return false
}

// bareSegmentMatch - запасной вариант для адресов без "г." и "обл.":
// сегмент между запятыми целиком совпадает с записью справочника.
// Может ошибаться на местных улицах без указания типа ("Саратов, д. 5").
func (c *Classifier) bareSegmentMatch(folded string) bool {
	for _, segment := range strings.Split(folded, ",") {
		segment = strings.Join(strings.Fields(strings.Trim(segment, " .;")), " ")
		if utf8.RuneCountInString(segment) < minContainRunes {
			continue
		}
		if strings.IndexFunc(segment, unicode.IsDigit) >= 0 {
			continue
		}
		if c.lex.hasUnitKeyword(segment) {
			continue
		}
		if c.lex.IsDistantExact(segment) {
			return true
		}
	}
	return false
}
