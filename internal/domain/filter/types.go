// Package filter describes field conditions that list endpoints accept as
// query parameters.
package filter

// ComparisonType is the kind of comparison.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains" // ILIKE %val%
	IsNull         ComparisonType = "null"
	IsNotNull      ComparisonType = "not_null"
)

// Item is one condition.
type Item struct {
	Field    string         `json:"field"`
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Valid reports whether op is a known comparison.
func (op ComparisonType) Valid() bool {
	switch op {
	case Equal, NotEqual, Less, Greater, LessOrEqual, GreaterOrEqual,
		InList, NotInList, Contains, IsNull, IsNotNull:
		return true
	}
	return false
}
