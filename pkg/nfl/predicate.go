package nfl

import (
	"fmt"
	"strings"

	"github.com/nealgriffin/gridiron/pkg/util"
)

// Predicate is a typed row filter. It evaluates directly against in-memory
// rows and compiles to a parameterized SQL WHERE fragment, so the same
// expression drives both the store and the temporal filter.
type Predicate interface {
	// SQL returns a parameterized WHERE fragment and its bind values
	SQL() (string, []any)
	// Matches evaluates the predicate against a column-keyed row.
	// A missing or nil column never matches, mirroring SQL NULL comparisons.
	Matches(row map[string]any) bool
	// String renders the expression with inlined values, for error reports
	String() string
}

type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

type compare struct {
	column string
	op     CompareOp
	value  any
}

// Eq builds column = value
func Eq(column string, value any) Predicate { return &compare{column, OpEq, value} }

// Ne builds column != value
func Ne(column string, value any) Predicate { return &compare{column, OpNe, value} }

// Lt builds column < value
func Lt(column string, value any) Predicate { return &compare{column, OpLt, value} }

// Le builds column <= value
func Le(column string, value any) Predicate { return &compare{column, OpLe, value} }

// Gt builds column > value
func Gt(column string, value any) Predicate { return &compare{column, OpGt, value} }

// Ge builds column >= value
func Ge(column string, value any) Predicate { return &compare{column, OpGe, value} }

func (c *compare) SQL() (string, []any) {
	return fmt.Sprintf("%s %s ?", c.column, c.op), []any{c.value}
}

func (c *compare) Matches(row map[string]any) bool {
	raw, ok := row[c.column]
	if !ok || raw == nil {
		return false
	}

	// Numeric comparison when both sides convert; string comparison otherwise
	lf, lerr := util.GetAsFloat(raw)
	rf, rerr := util.GetAsFloat(c.value)
	if lerr == nil && rerr == nil {
		switch c.op {
		case OpEq:
			return lf == rf
		case OpNe:
			return lf != rf
		case OpLt:
			return lf < rf
		case OpLe:
			return lf <= rf
		case OpGt:
			return lf > rf
		case OpGe:
			return lf >= rf
		}
		return false
	}

	ls, lerr := util.GetAsString(raw)
	rs, rerr := util.GetAsString(c.value)
	if lerr != nil || rerr != nil {
		return false
	}
	switch c.op {
	case OpEq:
		return ls == rs
	case OpNe:
		return ls != rs
	case OpLt:
		return ls < rs
	case OpLe:
		return ls <= rs
	case OpGt:
		return ls > rs
	case OpGe:
		return ls >= rs
	}
	return false
}

func (c *compare) String() string {
	return fmt.Sprintf("%s %s %v", c.column, c.op, c.value)
}

type conjunction struct {
	joiner string // "AND" or "OR"
	preds  []Predicate
}

// And combines predicates so all must match
func And(preds ...Predicate) Predicate {
	return &conjunction{joiner: "AND", preds: preds}
}

// Or combines predicates so at least one must match
func Or(preds ...Predicate) Predicate {
	return &conjunction{joiner: "OR", preds: preds}
}

func (c *conjunction) SQL() (string, []any) {
	if len(c.preds) == 0 {
		return "1=1", nil
	}
	var parts []string
	var args []any
	for _, p := range c.preds {
		sql, a := p.SQL()
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, " "+c.joiner+" ") + ")", args
}

func (c *conjunction) Matches(row map[string]any) bool {
	if len(c.preds) == 0 {
		return true
	}
	if c.joiner == "AND" {
		for _, p := range c.preds {
			if !p.Matches(row) {
				return false
			}
		}
		return true
	}
	for _, p := range c.preds {
		if p.Matches(row) {
			return true
		}
	}
	return false
}

func (c *conjunction) String() string {
	var parts []string
	for _, p := range c.preds {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, " "+c.joiner+" ") + ")"
}
