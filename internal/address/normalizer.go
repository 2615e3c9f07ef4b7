package address

import (
	"regexp"
	"strings"
)

// Квартира, офис, этаж, помещение, комната вместе с номером.
// Ведущий разделитель поглощается, лишние запятые убираются на следующем шаге.
var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:квартира|кв\.?)\s*№?\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:офис|оф\.?)\s*№?\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:этаж|эт\.?)\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:помещение|пом\.?)\s*№?\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:комната|комн\.?)\s*№?\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:apartment|apt\.?|kv\.?)\s*#?\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:office|floor|fl\.?)\s*#?\s*\d+`),
	regexp.MustCompile(`(?i)(?:^|[\s,])\s*(?:room|rm\.?)\s*#?\s*\d+`),
}

var (
	postalCodeRe = regexp.MustCompile(`^\s*\d{6}(?:\s*,\s*|\s+|$)`)
	repeatComma  = regexp.MustCompile(`,(?:\s*,)+`)
	repeatSpace  = regexp.MustCompile(`\s+`)
)

// Normalizer очищает адрес от квартир, офисов, индексов и дописывает регион.
type Normalizer struct {
	lex *Lexicon
}

func NewNormalizer(lex *Lexicon) *Normalizer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Normalizer{lex: lex}
}

// Normalize выполняет Strip и AppendRegion. Пустая строка возвращается как есть.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	return n.AppendRegion(n.Strip(raw))
}

// Strip убирает структурный шум, не трогая названия улиц и городов.
func (n *Normalizer) Strip(raw string) string {
	address := strings.TrimSpace(raw)

	for _, re := range unitPatterns {
		address = re.ReplaceAllString(address, "")
	}

	address = postalCodeRe.ReplaceAllString(address, "")

	address = repeatComma.ReplaceAllString(address, ",")
	address = repeatSpace.ReplaceAllString(address, " ")
	return strings.Trim(address, " ,")
}

// AppendRegion дописывает ", <регион>, <страна>", если в адресе нет
// упоминания Москвы или области. Для городов-спутников - область, иначе город.
func (n *Normalizer) AppendRegion(address string) string {
	folded := Fold(address)
	if n.lex.HasLocalIndicator(folded) {
		return address
	}

	region := n.lex.CityName
	if n.lex.HasSatellite(folded) {
		region = n.lex.RegionName
	}
	return address + ", " + region + ", " + n.lex.Country
}
