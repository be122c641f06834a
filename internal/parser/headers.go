package parser

import (
	"strings"

	"github.com/liftdiag/internal/textnorm"
)

// Field is a logical column of the incident sheet
type Field int

const (
	FieldInstallationID Field = iota
	FieldName
	FieldDependency
	FieldCommissioned
	FieldIncidentID
	FieldDescription
	FieldOccurred
	FieldCategory
	fieldCount
)

var fieldNames = [fieldCount]string{
	"installation_id", "name", "dependency", "commissioned_on",
	"incident_id", "description", "occurred_on", "category",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// headerAliases maps folded header spellings to fields. Keys go through
// textnorm.Key, so "ID_OBRA", "Id_Obra" and "id obra" all hit "idobra".
// Earlier aliases are tried first when a sheet carries more than one.
var headerAliases = []struct {
	key   string
	field Field
}{
	{"idobra", FieldInstallationID},
	{"nombreobra", FieldName},
	{"dependencia", FieldDependency},
	{"delegacion", FieldDependency},
	{"fechapm", FieldCommissioned},
	{"puestaenmarcha", FieldCommissioned},
	{"idaveria", FieldIncidentID},
	{"descaveria", FieldDescription},
	{"descripcion", FieldDescription},
	{"fechaaveria", FieldOccurred},
	{"categoria", FieldCategory},
}

// ColumnMap holds the column indexes of each field, primary alias first.
// A field with no matching header has no indexes.
type ColumnMap [fieldCount][]int

// MapHeader resolves a header row to column positions. Every column whose
// header matches an alias is kept, so a blank cell under one spelling can
// fall back to another spelling on the same row.
func MapHeader(header []string) ColumnMap {
	var cm ColumnMap

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = textnorm.Key(strings.TrimPrefix(h, byteOrderMark))
	}

	for _, alias := range headerAliases {
		for i, k := range keys {
			if k == alias.key {
				cm[alias.field] = append(cm[alias.field], i)
			}
		}
	}
	return cm
}

// Has reports whether the field was found in the header.
func (cm ColumnMap) Has(f Field) bool {
	return len(cm[f]) > 0
}

// Column returns the primary column of field f, or -1 when absent.
func (cm ColumnMap) Column(f Field) int {
	if len(cm[f]) == 0 {
		return -1
	}
	return cm[f][0]
}

// Value returns the first non-empty trimmed cell of row for field f, or ""
// when every matching column is blank, missing, or past the end of the row.
func (cm ColumnMap) Value(row []string, f Field) string {
	for _, i := range cm[f] {
		if i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(sanitizeUTF8(row[i])); v != "" {
			return v
		}
	}
	return ""
}
