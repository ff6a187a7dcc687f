package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 32

// Expression is a conjunction of equality conditions.
// An empty expression means "no filter", never "match nothing".
type Expression struct {
	must []Condition
}

// And validates and creates an Expression requiring every condition.
func And(conds ...Condition) (Expression, error) {
	if len(conds) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: conds}, nil
}

// Must returns the required conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// String renders the expression for logs, e.g. `category == "x" AND has_credit_risk == true`.
func (e Expression) String() string {
	if e.IsEmpty() {
		return "<none>"
	}
	parts := make([]string, len(e.must))
	for i, c := range e.must {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Condition is a single equality clause on a metadata key: a string match or a boolean flag.
type Condition struct {
	key     string
	match   string
	boolean *bool
}

// NewMatch creates an exact string match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewBool creates a boolean equality condition.
func NewBool(key string, v bool) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, boolean: &v}, nil
}

// Key returns the metadata key.
func (c Condition) Key() string { return c.key }

// Match returns the string match value; booleans render as "true"/"false".
func (c Condition) Match() string {
	if c.boolean != nil {
		return strconv.FormatBool(*c.boolean)
	}
	return c.match
}

// IsBool reports whether this is a boolean condition.
func (c Condition) IsBool() bool { return c.boolean != nil }

// Bool returns the boolean value; false for match conditions.
func (c Condition) Bool() bool { return c.boolean != nil && *c.boolean }

func (c Condition) String() string {
	if c.IsBool() {
		return c.key + " == " + c.Match()
	}
	return c.key + " == " + strconv.Quote(c.match)
}
