package filter

import (
	"fmt"
	"strings"

	"github.com/ianzepp/monk-api/internal/apperr"
)

// Lowered is a WHERE fragment with its bound parameters, ready to be
// spliced into a larger query starting at whatever parameter index the
// caller supplies (spec.md §4.3's "parameter offsetting").
type Lowered struct {
	SQL            string
	Args           []any
	NextParamIndex int
}

// lowerState threads the running parameter counter through recursive
// lowering calls.
type lowerState struct {
	paramIndex int
	args       []any
}

func (s *lowerState) bind(v any) string {
	s.args = append(s.args, v)
	placeholder := fmt.Sprintf("$%d", s.paramIndex)
	s.paramIndex++
	return placeholder
}

// Lower renders node to a parameterised SQL boolean expression,
// starting parameter numbering at startingParamIndex (spec.md §4.3).
func Lower(node Node, startingParamIndex int) (Lowered, error) {
	if startingParamIndex < 1 {
		startingParamIndex = 1
	}
	s := &lowerState{paramIndex: startingParamIndex}
	sql, err := lowerNode(s, node)
	if err != nil {
		return Lowered{}, err
	}
	return Lowered{SQL: sql, Args: s.args, NextParamIndex: s.paramIndex}, nil
}

func lowerNode(s *lowerState, node Node) (string, error) {
	switch n := node.(type) {
	case And:
		if len(n.Children) == 0 {
			return "1=1", nil
		}
		return lowerConjunction(s, n.Children, " AND ")
	case Logical:
		return lowerLogical(s, n)
	case FieldPredicate:
		return lowerPredicate(s, n)
	default:
		return "", apperr.New(apperr.CodeValidation, "unrecognized filter node")
	}
}

func lowerConjunction(s *lowerState, children []Node, sep string) (string, error) {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		part, err := lowerNode(s, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+part+")")
	}
	return strings.Join(parts, sep), nil
}

func lowerLogical(s *lowerState, n Logical) (string, error) {
	switch n.Operator {
	case LogAnd:
		return lowerConjunction(s, n.Children, " AND ")
	case LogOr:
		return lowerConjunction(s, n.Children, " OR ")
	case LogNot:
		inner, err := lowerNode(s, n.Children[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case LogNand:
		inner, err := lowerConjunction(s, n.Children, " AND ")
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case LogNor:
		inner, err := lowerConjunction(s, n.Children, " OR ")
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", apperr.Newf(apperr.CodeValidation, "unknown logical operator %q", n.Operator)
	}
}

func lowerPredicate(s *lowerState, p FieldPredicate) (string, error) {
	if err := ValidateIdentifier(p.Field); err != nil {
		return "", err
	}
	col := `"` + p.Field + `"`

	switch p.Operator {
	case OpEq:
		if p.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + s.bind(p.Value), nil
	case OpNe:
		if p.Value == nil {
			return col + " IS NOT NULL", nil
		}
		return col + " != " + s.bind(p.Value), nil
	case OpGt:
		return col + " > " + s.bind(p.Value), nil
	case OpGte:
		return col + " >= " + s.bind(p.Value), nil
	case OpLt:
		return col + " < " + s.bind(p.Value), nil
	case OpLte:
		return col + " <= " + s.bind(p.Value), nil

	case OpIn:
		arr := p.Value.([]any)
		if len(arr) == 0 {
			return "1=0", nil
		}
		return col + " IN " + s.bindList(arr), nil
	case OpNin:
		arr := p.Value.([]any)
		if len(arr) == 0 {
			return "1=1", nil
		}
		return col + " NOT IN " + s.bindList(arr), nil

	case OpLike:
		return col + " LIKE " + s.bind(p.Value), nil
	case OpNlike:
		return col + " NOT LIKE " + s.bind(p.Value), nil
	case OpIlike:
		return "LOWER(" + col + ") LIKE LOWER(" + s.bind(p.Value) + ")", nil
	case OpNilike:
		return "LOWER(" + col + ") NOT LIKE LOWER(" + s.bind(p.Value) + ")", nil

	case OpRegex:
		return col + " ~ " + s.bind(p.Value), nil
	case OpNregex:
		return col + " !~ " + s.bind(p.Value), nil

	case OpAny:
		return col + " && " + s.bind(p.Value) + "::text[]", nil
	case OpNany:
		return "NOT (" + col + " && " + s.bind(p.Value) + "::text[])", nil
	case OpAll:
		return col + " @> " + s.bind(p.Value) + "::text[]", nil
	case OpNall:
		return "NOT (" + col + " @> " + s.bind(p.Value) + "::text[])", nil

	case OpSize:
		nested, ok := p.Value.(map[string]any)
		if !ok {
			return "", apperr.New(apperr.CodeValidation, "$size requires a nested operator document")
		}
		preds, err := parseFieldValue("__size__", nested)
		if err != nil {
			return "", err
		}
		var parts []string
		for _, node := range preds {
			pred := node.(FieldPredicate)
			pred.Field = "__size__"
			sizeExpr := "array_length(" + col + ", 1)"
			frag, err := lowerSizePredicate(s, sizeExpr, pred)
			if err != nil {
				return "", err
			}
			parts = append(parts, frag)
		}
		return strings.Join(parts, " AND "), nil

	case OpBetween:
		arr := p.Value.([]any)
		return col + " BETWEEN " + s.bind(arr[0]) + " AND " + s.bind(arr[1]), nil

	case OpExists:
		if p.Value.(bool) {
			return col + " IS NOT NULL", nil
		}
		return col + " IS NULL", nil
	case OpNull:
		if p.Value.(bool) {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil

	case OpFind, OpText:
		str, _ := p.Value.(string)
		return "LOWER(" + col + ") LIKE LOWER(" + s.bind("%"+str+"%") + ")", nil

	default:
		return "", apperr.Newf(apperr.CodeValidation, "unknown operator %q", p.Operator)
	}
}

// lowerSizePredicate renders a comparison against an already-built
// scalar SQL expression (array_length(...)), reusing the same operator
// semantics $size's nested document uses.
func lowerSizePredicate(s *lowerState, expr string, p FieldPredicate) (string, error) {
	switch p.Operator {
	case OpEq:
		return expr + " = " + s.bind(p.Value), nil
	case OpNe:
		return expr + " != " + s.bind(p.Value), nil
	case OpGt:
		return expr + " > " + s.bind(p.Value), nil
	case OpGte:
		return expr + " >= " + s.bind(p.Value), nil
	case OpLt:
		return expr + " < " + s.bind(p.Value), nil
	case OpLte:
		return expr + " <= " + s.bind(p.Value), nil
	default:
		return "", apperr.Newf(apperr.CodeValidation, "unsupported $size operator %q", p.Operator)
	}
}

func (s *lowerState) bindList(arr []any) string {
	placeholders := make([]string, len(arr))
	for i, v := range arr {
		placeholders[i] = s.bind(v)
	}
	return "(" + strings.Join(placeholders, ", ") + ")"
}

// AppendTrashedClause appends the always-on deleted_at clause and the
// options.trashed-driven trashed_at clause outside any user-visible
// parenthesis group (spec.md §4.3's soft-delete option).
func AppendTrashedClause(whereSQL string, args []any, nextParamIndex int, opt TrashedOption) (string, []any) {
	clause := `"deleted_at" IS NULL`
	switch opt {
	case TrashedInclude:
		// no additional trashed_at clause
	case TrashedOnly:
		clause += ` AND "trashed_at" IS NOT NULL`
	default: // TrashedExclude and zero-value default
		clause += ` AND "trashed_at" IS NULL`
	}
	if whereSQL == "" || whereSQL == "1=1" {
		return clause, args
	}
	return "(" + whereSQL + ") AND " + clause, args
}
