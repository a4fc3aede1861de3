// Package filter turns the declarative filter and pagination payloads sent by
// listing endpoints into gorm query scopes.
package filter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Operator selects how a text criterion matches.
type Operator string

const (
	Start    Operator = "START"
	Contains Operator = "CONTAINS"
	Exact    Operator = "EXACT"
	Finish   Operator = "FINISH"
)

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	switch op {
	case Start, Contains, Exact, Finish:
		return true
	}
	return false
}

// Number is an optional numeric bound. JSON null, "" and a missing key all
// decode as unset; numeric strings are accepted.
type Number struct {
	Value float64
	Set   bool
}

// NewNumber returns a set bound.
func NewNumber(v float64) Number {
	return Number{Value: v, Set: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*n = Number{}
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	if s == "" {
		*n = Number{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("filter: invalid number %s", raw)
	}
	*n = Number{Value: v, Set: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// Field holds the criteria for one field. Text fields use Operator and
// Value; numeric fields use From and To (inclusive, each optional).
type Field struct {
	Operator Operator `json:"operator,omitempty"`
	Value    string   `json:"value,omitempty"`
	From     Number   `json:"from"`
	To       Number   `json:"to"`
}

func (f Field) isText() bool {
	return f.Operator != "" || f.Value != ""
}

// Spec maps field names to criteria.
type Spec map[string]Field

// Validate rejects unknown operators on text criteria.
func (s Spec) Validate() error {
	for name, f := range s {
		if f.Value == "" {
			continue
		}
		if f.Operator != "" && !f.Operator.Valid() {
			return fmt.Errorf("filter %q: unknown operator %q", name, f.Operator)
		}
	}
	return nil
}

// Columns maps the field names a listing accepts to qualified SQL columns.
// Fields outside the map are ignored, so user input never reaches the SQL
// text.
type Columns map[string]string

// Scope applies every non-empty criterion whose field is listed in cols.
func (s Spec) Scope(cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for name, f := range s {
			col, ok := cols[name]
			if !ok {
				continue
			}
			if f.isText() {
				db = applyText(db, col, f)
				continue
			}
			db = applyRange(db, col, f)
		}
		return db
	}
}

// Pattern returns the case-insensitive LIKE pattern for value under op, or
// "" when the criterion is a no-op.
func Pattern(op Operator, value string) string {
	if value == "" {
		return ""
	}
	v := strings.ToLower(escapeLike(value))
	switch op {
	case Start:
		return v + "%"
	case Exact:
		return v
	case Finish:
		return "%" + v
	default:
		return "%" + v + "%"
	}
}

func applyText(db *gorm.DB, col string, f Field) *gorm.DB {
	p := Pattern(f.Operator, f.Value)
	if p == "" {
		return db
	}
	return db.Where(fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col), p)
}

func applyRange(db *gorm.DB, col string, f Field) *gorm.DB {
	if f.From.Set {
		db = db.Where(col+" >= ?", f.From.Value)
	}
	if f.To.Set {
		db = db.Where(col+" <= ?", f.To.Value)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// AnyOf ORs one text criterion across several columns. The sale listing uses
// it to match a single search term against the buyer's name and contact.
func AnyOf(f Field, cols ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		p := Pattern(f.Operator, f.Value)
		if p == "" || len(cols) == 0 {
			return db
		}
		clauses := make([]string, 0, len(cols))
		args := make([]any, 0, len(cols))
		for _, col := range cols {
			clauses = append(clauses, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
			args = append(args, p)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}
