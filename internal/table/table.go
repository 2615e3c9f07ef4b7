// Package table содержит табличную модель выгрузки и конвейер фильтрации строк.
package table

import "strings"

// Record - одна строка выгрузки: имя столбца -> значение ячейки.
type Record map[string]string

// Table хранит порядок столбцов отдельно от строк; у всех строк один набор столбцов.
type Table struct {
	Columns []string
	Rows    []Record
}

func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn сообщает, есть ли столбец с точно таким именем.
func (t Table) HasColumn(name string) bool {
	return indexOf(t.Columns, name) >= 0
}

func (r Record) clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Role - смысловое назначение столбца, имя которого заранее не известно.
type Role string

const (
	RoleAddress     Role = "address"
	RoleVehicleData Role = "vehicle_data"
	RoleAddressType Role = "address_type"
	RoleNewCarFlag  Role = "new_car_flag"
)

// Roles перечисляет роли в порядке, в котором о них сообщается.
var Roles = []Role{RoleAddress, RoleVehicleData, RoleAddressType, RoleNewCarFlag}

var roleLabels = map[Role][]string{
	RoleAddress:     {"адрес", "address"},
	RoleVehicleData: {"данные авто", "vehicle data", "данные тс"},
	RoleAddressType: {"тип адреса", "address type", "тип", "type"},
	RoleNewCarFlag:  {"флаг", "новый", "flag", "new"},
}

// "Тип адреса" содержит "адрес", но столбцом адреса не является.
var roleExcludes = map[Role][]string{
	RoleAddress: {"тип", "type"},
}

// FindColumn ищет первый по порядку столбец, в названии которого (без учёта
// регистра) встречается одна из меток роли.
func FindColumn(columns []string, role Role) (string, bool) {
	for _, column := range columns {
		name := strings.ToLower(strings.TrimSpace(column))
		if containsAny(name, roleExcludes[role]) {
			continue
		}
		if containsAny(name, roleLabels[role]) {
			return column, true
		}
	}
	return "", false
}

// DetectColumns возвращает найденные столбцы по ролям и список ненайденных ролей.
func DetectColumns(columns []string) (map[Role]string, []Role) {
	found := make(map[Role]string, len(Roles))
	var missing []Role
	for _, role := range Roles {
		if column, ok := FindColumn(columns, role); ok {
			found[role] = column
			continue
		}
		missing = append(missing, role)
	}
	return found, missing
}

func containsAny(s string, labels []string) bool {
	for _, label := range labels {
		if strings.Contains(s, label) {
			return true
		}
	}
	return false
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
