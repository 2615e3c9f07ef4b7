// Package plate извлекает номерной знак из свободного текста ("ДАННЫЕ АВТО").
package plate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"rozysk-service/internal/utils"
)

// Result - найденный номер и текст без него.
// Если номер не найден, Plate пустой, а Residual равен исходному тексту.
type Result struct {
	Plate    string
	Residual string
}

// matcher - одна стратегия поиска; ok=false означает "нет совпадения".
type matcher func(upper string) (plate string, ok bool)

const letter = `[A-ZА-ЯЁ]`

var (
	// легковой: А123ВС77, А123ВС777
	passengerRe = regexp.MustCompile(letter + `\d{3}` + letter + `{2}\d{2,3}`)
	// прицепы и спецтехника: 1234АВ77
	trailerRe = regexp.MustCompile(`\d{4}` + letter + `{2}\d{2,3}`)
	// всё остальное похожее на номер
	looseRe = regexp.MustCompile(letter + `{1,2}\d{3,4}` + letter + `{1,2}\d{2,3}`)

	residualSpace = regexp.MustCompile(`\s+`)
	spaceComma    = regexp.MustCompile(`\s+,`)
	residualComma = regexp.MustCompile(`,(?:\s*,)+`)
)

// Extractor перебирает стратегии по порядку; побеждает первая сработавшая.
type Extractor struct {
	matchers []matcher
}

func NewExtractor() *Extractor {
	return &Extractor{
		matchers: []matcher{
			regexMatcher(passengerRe),
			regexMatcher(trailerRe),
			regexMatcher(looseRe),
			tailMatcher,
		},
	}
}

// Extract никогда не паникует: любая внутренняя ошибка трактуется как "номера нет".
func (e *Extractor) Extract(text string) (res Result) {
	res = Result{Residual: text}
	if strings.TrimSpace(text) == "" {
		return res
	}

	defer func() {
		if recover() != nil {
			res = Result{Residual: text}
		}
	}()

	upper := strings.ToUpper(text)
	for _, match := range e.matchers {
		found, ok := match(upper)
		if !ok {
			continue
		}
		plate := utils.NormalizePlate(found)
		if plate == "" {
			continue
		}
		return Result{Plate: plate, Residual: removeFirst(text, plate)}
	}

	return res
}

func regexMatcher(re *regexp.Regexp) matcher {
	return func(upper string) (string, bool) {
		found := re.FindString(upper)
		return found, found != ""
	}
}

// tailMatcher смотрит на последний токен текста без пробелов:
// окончание "цифра-цифра-буква" даёт 8 символов, "три цифры" - 9.
func tailMatcher(upper string) (string, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, upper)

	tokens := strings.Fields(strings.ReplaceAll(compact, ",", " "))
	if len(tokens) == 0 {
		return "", false
	}

	last := []rune(tokens[len(tokens)-1])
	if len(last) < 8 {
		return "", false
	}

	tail := last[len(last)-3:]
	switch {
	case unicode.IsDigit(tail[0]) && unicode.IsDigit(tail[1]) && unicode.IsLetter(tail[2]):
		return string(last[len(last)-8:]), true
	case unicode.IsDigit(tail[0]) && unicode.IsDigit(tail[1]) && unicode.IsDigit(tail[2]):
		if len(last) >= 9 {
			return string(last[len(last)-9:]), true
		}
		return string(last), true
	}
	return "", false
}

// removeFirst удаляет первое вхождение номера и подчищает запятые.
// Совпадение с пробелами между символами ("А 123 ВС 77") принимается, только если
// оно занимает целые слова; иначе ищется буквальное вхождение. Не нашлось - текст не меняется.
func removeFirst(text, plate string) string {
	loc := spacedMatch(text, plate)
	if loc == nil {
		i := strings.Index(text, plate)
		if i < 0 {
			return text
		}
		loc = []int{i, i + len(plate)}
	}

	residual := text[:loc[0]] + " " + text[loc[1]:]
	residual = residualSpace.ReplaceAllString(residual, " ")
	residual = spaceComma.ReplaceAllString(residual, ",")
	residual = residualComma.ReplaceAllString(residual, ",")
	return strings.Trim(residual, " ,")
}

// spacedMatch ищет номер без учёта регистра с пробелами между символами,
// границы совпадения должны приходиться на начало/конец текста, пробел или запятую.
func spacedMatch(text, plate string) []int {
	runes := []rune(plate)
	parts := make([]string, 0, len(runes))
	for _, r := range runes {
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}

	re, err := regexp.Compile(`(?i)` + strings.Join(parts, `\s*`))
	if err != nil {
		return nil
	}

	for _, loc := range re.FindAllStringIndex(text, -1) {
		if tokenBoundaryBefore(text, loc[0]) && tokenBoundaryAfter(text, loc[1]) {
			return loc
		}
	}
	return nil
}

func tokenBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return isSeparator(r)
}

func tokenBoundaryAfter(text string, i int) bool {
	if i == len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isSeparator(r)
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}
