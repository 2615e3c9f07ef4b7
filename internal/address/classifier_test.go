package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_LocalIndicatorsAreNeverDistant(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	addresses := []string{
		"г. Москва, ул. Саратовская, д. 5",
		"Московская обл., г. Подольск, ул. Ленина",
		"МО, Новосибирская ул., д. 1",
		"м.о. г. Химки",
		"Moscow, Novosibirskaya street 5",
		"г. Новосибирск, ул. Ленина, д. 1, Москва",
		"Краснодарский край, ул. Мира, Москва, Россия",
	}

	for _, address := range addresses {
		t.Run(address, func(t *testing.T) {
			assert.False(t, c.IsDistant(address))
		})
	}
}

func TestClassifier_MarkedDistantPlaces(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	addresses := []string{
		"г. Новосибирск, ул. Ленина, д. 1",
		"city. Novosibirsk",
		"город Саратов, пр. Кирова, 5",
		"Volgogradskaya oblast, dom 5",
		"Волгоградская область, д. 5",
		"Краснодарский край, г. Сочи",
		"Республика Татарстан, г. Казань",
		"Ленинградская обл., Гатчина, ул. Соборная",
		"г. Орёл, ул. Ленина, 1",
		"г. Санкт-Петербург, Невский пр-т, 1",
		"г. Нижний Новгород",
	}

	for _, address := range addresses {
		t.Run(address, func(t *testing.T) {
			assert.True(t, c.IsDistant(address))
		})
	}
}

func TestClassifier_StreetNamesAreNotPlaces(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	addresses := []string{
		"ul. Saratovskaya, dom 5",
		"ул. Саратовская, д. 5",
		"Саратовская ул., д. 5",
		"Волгоградский пр-т, д. 42",
		"ул. Город Саратов, д. 5",
	}

	for _, address := range addresses {
		t.Run(address, func(t *testing.T) {
			assert.False(t, c.IsDistant(address))
		})
	}
}

func TestClassifier_BareSegmentFallback(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	assert.True(t, c.IsDistant("Новосибирск, ул. Ленина, д. 1"))
	assert.True(t, c.IsDistant("Novosibirsk, ul. Lenina 1"))
	assert.True(t, c.IsDistant("ул. Ленина 3, Тула"))
	assert.False(t, c.IsDistant("ул. Ленина, д. 5"))
	assert.False(t, c.IsDistant("Тула 5"))
}

// Голое название удалённого города, использованное как название местной
// дороги без "ул."/"ш.", исключается. Это известное ограничение эвристики.
func TestClassifier_KnownFalsePositiveBareStreetName(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	assert.True(t, c.IsDistant("Саратов, д. 5"))
}

// Тип улицы в том же сегменте гасит и кандидата с явным "г.",
// поэтому без запятой после города адрес остаётся местным.
func TestClassifier_KnownFalseNegativeCityWithoutComma(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	assert.False(t, c.IsDistant("г. Новосибирск ул. Ленина 5"))
	assert.True(t, c.IsDistant("г. Новосибирск, ул. Ленина 5"))
}

func TestClassifier_SatellitesStayLocal(t *testing.T) {
	c := NewClassifier(DefaultLexicon())

	assert.False(t, c.IsDistant("г. Клин, ул. Ленина"))
	assert.False(t, c.IsDistant("г. Дзержинский, ул. Ленина"))
	assert.False(t, c.IsDistant("г. Балашиха, Саратовская ул."))
}

func TestClassifier_EmptyInput(t *testing.T) {
	c := NewClassifier(nil)

	assert.False(t, c.IsDistant(""))
	assert.False(t, c.IsDistant("   "))
}
