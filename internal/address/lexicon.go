package address

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

type lexiconFile struct {
	Local struct {
		City       string   `yaml:"city"`
		Region     string   `yaml:"region"`
		Country    string   `yaml:"country"`
		Indicators []string `yaml:"indicators"`
		Satellites []string `yaml:"satellites"`
	} `yaml:"local"`
	Distant struct {
		Cities  []string `yaml:"cities"`
		Regions []string `yaml:"regions"`
	} `yaml:"distant"`
	StreetTypes  []string `yaml:"street_types"`
	UnitKeywords []string `yaml:"unit_keywords"`
}

// Lexicon - неизменяемый справочник топонимов целевого и удалённых регионов.
// После загрузки безопасен для одновременного использования.
type Lexicon struct {
	CityName   string
	RegionName string
	Country    string

	distant      []string
	distantSet   map[string]struct{}
	satelliteSet map[string]struct{}

	localRe     *regexp.Regexp
	satelliteRe *regexp.Regexp
	streetRe    *regexp.Regexp
	unitRe      *regexp.Regexp
}

var defaultLexicon = sync.OnceValues(func() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
})

// DefaultLexicon возвращает встроенный справочник (Москва и Московская область).
func DefaultLexicon() *Lexicon {
	lex, err := defaultLexicon()
	if err != nil {
		panic(fmt.Sprintf("address: embedded lexicon is invalid: %v", err))
	}
	return lex
}

// LoadLexicon читает справочник в формате YAML.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

func ParseLexicon(data []byte) (*Lexicon, error) {
	var raw lexiconFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}

	if strings.TrimSpace(raw.Local.City) == "" || strings.TrimSpace(raw.Local.Region) == "" {
		return nil, fmt.Errorf("lexicon: local city and region are required")
	}
	if strings.TrimSpace(raw.Local.Country) == "" {
		return nil, fmt.Errorf("lexicon: country is required")
	}
	if len(raw.Local.Indicators) == 0 {
		return nil, fmt.Errorf("lexicon: at least one local indicator is required")
	}
	if len(raw.Distant.Cities)+len(raw.Distant.Regions) == 0 {
		return nil, fmt.Errorf("lexicon: distant list is empty")
	}

	local := foldAll(raw.Local.Indicators)
	// название города и региона всегда считаются признаком целевого региона
	local = append(local, Fold(raw.Local.City), Fold(raw.Local.Region))

	satellites := withRomanizations(foldAll(raw.Local.Satellites))
	distant := withRomanizations(foldAll(append(raw.Distant.Cities, raw.Distant.Regions...)))

	lex := &Lexicon{
		CityName:     strings.TrimSpace(raw.Local.City),
		RegionName:   strings.TrimSpace(raw.Local.Region),
		Country:      strings.TrimSpace(raw.Local.Country),
		distant:      distant,
		distantSet:   toSet(distant),
		satelliteSet: toSet(satellites),
		localRe:      wordPattern(local),
		streetRe:     wordPattern(foldAll(raw.StreetTypes)),
		unitRe:       wordPattern(foldAll(raw.UnitKeywords)),
	}
	if len(satellites) > 0 {
		lex.satelliteRe = wordPattern(satellites)
	}

	return lex, nil
}

// HasLocalIndicator сообщает, упоминается ли в свёрнутом адресе сам город,
// его область или их стандартные сокращения.
func (l *Lexicon) HasLocalIndicator(folded string) bool {
	return l.localRe.MatchString(folded)
}

// HasSatellite сообщает, упоминается ли в свёрнутом адресе город-спутник.
func (l *Lexicon) HasSatellite(folded string) bool {
	return l.satelliteRe != nil && l.satelliteRe.MatchString(folded)
}

func (l *Lexicon) IsSatellite(folded string) bool {
	_, ok := l.satelliteSet[folded]
	return ok
}

func (l *Lexicon) IsDistantExact(folded string) bool {
	_, ok := l.distantSet[folded]
	return ok
}

// minContainRunes - минимальная длина обеих строк для сравнения по вхождению.
const minContainRunes = 4

// MatchDistant сравнивает кандидата со справочником: точное совпадение
// или вхождение в любую сторону. Возвращает найденную запись.
func (l *Lexicon) MatchDistant(candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	if _, ok := l.distantSet[candidate]; ok {
		return candidate, true
	}
	if runeLen(candidate) < minContainRunes {
		return "", false
	}
	for _, entry := range l.distant {
		if runeLen(entry) < minContainRunes {
			continue
		}
		if strings.Contains(candidate, entry) || strings.Contains(entry, candidate) {
			return entry, true
		}
	}
	return "", false
}

func (l *Lexicon) hasUnitKeyword(folded string) bool {
	return l.unitRe.MatchString(folded)
}

// wordPattern собирает регулярное выражение "одно из слов" с границами,
// работающими и для кириллицы (\b в RE2 понимает только ASCII).
// Группа 1 содержит само совпавшее слово.
func wordPattern(words []string) *regexp.Regexp {
	uniq := dedupe(words)
	sort.Slice(uniq, func(i, j int) bool {
		return len(uniq[i]) > len(uniq[j])
	})

	quoted := make([]string, 0, len(uniq))
	for _, w := range uniq {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		// ничего не совпадает
		return regexp.MustCompile(`[^\s\S]`)
	}

	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
}

func foldAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(Fold(v)), " ")
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func withRomanizations(values []string) []string {
	out := make([]string, 0, len(values)*3)
	for _, v := range values {
		out = append(out, v)
		out = append(out, romanizations(v)...)
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func runeLen(s string) int {
	return len([]rune(s))
}
