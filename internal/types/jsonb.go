package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"swellwatch/internal/direction"
)

var (
	_ sql.Scanner   = (*Range)(nil)
	_ driver.Valuer = Range{}
	_ sql.Scanner   = (*CardinalSet)(nil)
	_ driver.Valuer = CardinalSet(nil)
	_ sql.Scanner   = (*ComparisonList)(nil)
	_ driver.Valuer = ComparisonList(nil)
)

// scanJSONB scans a JSONB column into dest, accepting both []byte and
// string driver representations.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

func valueJSONB(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner.
func (r *Range) Scan(value interface{}) error {
	return scanJSONB(r, value)
}

// Value implements driver.Valuer.
func (r Range) Value() (driver.Value, error) {
	return valueJSONB(r)
}

// CardinalSet is the JSONB form of a location's optimal wind directions.
type CardinalSet []direction.Cardinal

// Scan implements sql.Scanner and rejects unknown cardinal names.
func (cs *CardinalSet) Scan(value interface{}) error {
	if value == nil {
		*cs = nil
		return nil
	}
	var raw []string
	if err := scanJSONB(&raw, value); err != nil {
		return err
	}
	out := make(CardinalSet, 0, len(raw))
	for _, s := range raw {
		c, err := direction.Parse(s)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}

// Value implements driver.Valuer.
func (cs CardinalSet) Value() (driver.Value, error) {
	if cs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]direction.Cardinal(cs))
}

// ComparisonList stores MatchResult evidence on check rows.
type ComparisonList []PropertyComparison

// Scan implements sql.Scanner.
func (cl *ComparisonList) Scan(value interface{}) error {
	if value == nil {
		*cl = nil
		return nil
	}
	return scanJSONB(cl, value)
}

// Value implements driver.Valuer.
func (cl ComparisonList) Value() (driver.Value, error) {
	if cl == nil {
		return nil, nil
	}
	return valueJSONB([]PropertyComparison(cl))
}
