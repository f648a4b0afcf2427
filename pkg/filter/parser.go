package filter

import (
	"regexp"

	"github.com/ianzepp/monk-api/internal/apperr"
)

// identifierPattern is what a field name in a filter document must
// match (spec.md §4.3: "identifiers... are validated against
// ^[a-zA-Z_][a-zA-Z0-9_]*$").
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var logicalOperators = map[string]LogicalOperator{
	"$and": LogAnd, "$or": LogOr, "$not": LogNot, "$nand": LogNand, "$nor": LogNor,
}

var fieldOperators = map[string]Operator{
	"$eq": OpEq, "$ne": OpNe, "$gt": OpGt, "$gte": OpGte, "$lt": OpLt, "$lte": OpLte,
	"$in": OpIn, "$nin": OpNin, "$like": OpLike, "$nlike": OpNlike, "$ilike": OpIlike,
	"$nilike": OpNilike, "$regex": OpRegex, "$nregex": OpNregex, "$any": OpAny, "$all": OpAll,
	"$nany": OpNany, "$nall": OpNall, "$size": OpSize, "$between": OpBetween,
	"$exists": OpExists, "$null": OpNull, "$find": OpFind, "$text": OpText,
}

// ParseWhere parses a filter document's `where` value into a Node tree
// (spec.md §4.3's WHERE grammar). A nil where is an always-true filter.
func ParseWhere(where any) (Node, error) {
	if where == nil {
		return And{}, nil
	}
	m, ok := where.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.CodeValidation, "where must be an object")
	}
	return parseObject(m)
}

func parseObject(m map[string]any) (Node, error) {
	var children []Node
	for key, value := range m {
		if logOp, ok := logicalOperators[key]; ok {
			node, err := parseLogical(logOp, value)
			if err != nil {
				return nil, err
			}
			children = append(children, node)
			continue
		}

		if !identifierPattern.MatchString(key) {
			return nil, apperr.Newf(apperr.CodeValidation, "invalid field name %q in where clause", key)
		}

		preds, err := parseFieldValue(key, value)
		if err != nil {
			return nil, err
		}
		children = append(children, preds...)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

func parseLogical(op LogicalOperator, value any) (Node, error) {
	if op == LogNot {
		sub, ok := value.(map[string]any)
		if !ok {
			return nil, apperr.New(apperr.CodeValidation, "$not must be a single subdocument")
		}
		child, err := parseObject(sub)
		if err != nil {
			return nil, err
		}
		return Logical{Operator: op, Children: []Node{child}}, nil
	}

	arr, ok := value.([]any)
	if !ok || len(arr) == 0 {
		return nil, apperr.Newf(apperr.CodeValidation, "%s requires a non-empty array of subdocuments", op)
	}
	var children []Node
	for _, item := range arr {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "%s array items must be objects", op)
		}
		child, err := parseObject(sub)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return Logical{Operator: op, Children: children}, nil
}

// parseFieldValue handles both `{field: value}` (implicit $eq or $in)
// and `{field: {$op: value, ...}}` (one predicate per operator key,
// implicitly AND'd).
func parseFieldValue(field string, value any) ([]Node, error) {
	opMap, ok := value.(map[string]any)
	if !ok {
		if arr, isArr := value.([]any); isArr {
			return []Node{FieldPredicate{Field: field, Operator: OpIn, Value: arr}}, nil
		}
		return []Node{FieldPredicate{Field: field, Operator: OpEq, Value: value}}, nil
	}

	// Disambiguate an operator-doc from a literal JSON object value
	// (only jsonb-typed fields take raw object literals, and those
	// must use $eq explicitly since a bare object always parses as an
	// operator document here).
	var preds []Node
	sawOperator := false
	for key, v := range opMap {
		op, ok := fieldOperators[key]
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "unknown operator %q for field %q", key, field)
		}
		sawOperator = true
		if err := validateOperand(op, v); err != nil {
			return nil, err
		}
		preds = append(preds, FieldPredicate{Field: field, Operator: op, Value: v})
	}
	if !sawOperator {
		return []Node{FieldPredicate{Field: field, Operator: OpEq, Value: value}}, nil
	}
	return preds, nil
}

func validateOperand(op Operator, v any) error {
	switch op {
	case OpBetween:
		arr, ok := v.([]any)
		if !ok || len(arr) != 2 {
			return apperr.New(apperr.CodeValidation, "$between requires exactly two elements")
		}
		for _, item := range arr {
			if item == nil {
				return apperr.New(apperr.CodeValidation, "$between elements must not be null")
			}
		}
	case OpExists, OpNull:
		if _, ok := v.(bool); !ok {
			return apperr.Newf(apperr.CodeValidation, "%s requires a boolean operand", op)
		}
	case OpIn, OpNin, OpAny, OpAll, OpNany, OpNall:
		if _, ok := v.([]any); !ok {
			return apperr.Newf(apperr.CodeValidation, "%s requires an array operand", op)
		}
	}
	return nil
}

// ValidateIdentifier exposes identifierPattern for callers outside this
// package (order-clause fields, group-by columns).
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return apperr.Newf(apperr.CodeValidation, "invalid identifier %q", name)
	}
	return nil
}
