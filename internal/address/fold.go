package address

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Fold приводит строку к форме сравнения: NFC, нижний регистр, "ё" -> "е".
func Fold(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "ё", "е")
}

// Таблица транслитерации в том виде, в каком адреса встречаются в выгрузках
var translitMap = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// transliterate переводит свёрнутую кириллическую строку в латиницу.
// Символы вне таблицы (дефисы, пробелы, латиница) остаются как есть.
func transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if lat, ok := translitMap[r]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// romanizations возвращает латинские варианты топонима: по таблице и по unidecode
// (последний даёт "ia"/"i" вместо "ya"/"y" и встречается в части источников).
func romanizations(folded string) []string {
	if !hasCyrillic(folded) {
		return nil
	}

	variants := []string{transliterate(folded)}

	alt := strings.ToLower(unidecode.Unidecode(folded))
	alt = strings.ReplaceAll(alt, "'", "")
	if alt != variants[0] && alt != "" {
		variants = append(variants, alt)
	}
	return variants
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if r >= 'а' && r <= 'я' || r == 'ё' {
			return true
		}
	}
	return false
}
