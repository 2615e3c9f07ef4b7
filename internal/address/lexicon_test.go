package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex := DefaultLexicon()

	assert.Equal(t, "Москва", lex.CityName)
	assert.Equal(t, "Московская область", lex.RegionName)
	assert.Equal(t, "Россия", lex.Country)
	assert.True(t, lex.IsDistantExact("volgogradskaya"))
	assert.True(t, lex.IsDistantExact("novosibirsk"))
	assert.True(t, lex.IsSatellite("balashikha"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "орел", Fold("Орёл"))
	assert.Equal(t, "щелково", Fold("ЩЁЛКОВО"))
	assert.Equal(t, "moscow", Fold("MOSCOW"))
}

func TestLexicon_MatchDistant(t *testing.T) {
	lex := DefaultLexicon()

	tests := []struct {
		candidate string
		want      string
		ok        bool
	}{
		{candidate: "саратов", want: "саратов", ok: true},
		{candidate: "новосибирский", want: "новосибирск", ok: true},
		{candidate: "санкт-петербург город", want: "санкт-петербург", ok: true},
		{candidate: "уфа", want: "уфа", ok: true},
		{candidate: "уф", want: "", ok: false},
		{candidate: "ленина", want: "", ok: false},
		{candidate: "", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			got, ok := lex.MatchDistant(tt.candidate)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLexicon_Indicators(t *testing.T) {
	lex := DefaultLexicon()

	assert.True(t, lex.HasLocalIndicator(Fold("г. Москва")))
	assert.True(t, lex.HasLocalIndicator(Fold("МО, г. Химки")))
	assert.False(t, lex.HasLocalIndicator(Fold("ул. Московская")))
	assert.False(t, lex.HasLocalIndicator(Fold("ул. Мосфильмовская")))

	assert.True(t, lex.HasSatellite(Fold("г. Балашиха")))
	assert.False(t, lex.HasSatellite(Fold("ул. Клинская")))
}

func TestParseLexicon(t *testing.T) {
	t.Run("custom lexicon", func(t *testing.T) {
		lex, err := LoadLexicon(strings.NewReader(`
local:
  city: Казань
  region: Республика Татарстан
  country: Россия
  indicators: [казань, рт]
  satellites: [зеленодольск]
distant:
  cities: [москва]
street_types: [ул]
`))
		require.NoError(t, err)

		c := NewClassifier(lex)
		assert.True(t, c.IsDistant("г. Москва, ул. Ленина"))
		assert.False(t, c.IsDistant("г. Казань, ул. Баумана"))

		n := NewNormalizer(lex)
		assert.Equal(t, "г. Зеленодольск, Республика Татарстан, Россия", n.Normalize("г. Зеленодольск"))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseLexicon([]byte("local: [unclosed"))
		require.Error(t, err)
	})

	t.Run("missing city", func(t *testing.T) {
		_, err := ParseLexicon([]byte("local:\n  region: X\n  country: Y\n  indicators: [x]\ndistant:\n  cities: [z]\n"))
		require.Error(t, err)
	})

	t.Run("empty distant list", func(t *testing.T) {
		_, err := ParseLexicon([]byte("local:\n  city: A\n  region: B\n  country: C\n  indicators: [a]\n"))
		require.Error(t, err)
	})
}
