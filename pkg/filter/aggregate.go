package filter

import (
	"fmt"
	"strings"

	"github.com/ianzepp/monk-api/internal/apperr"
)

var aggregateSQLFunc = map[AggregateFunc]string{
	AggSum: "SUM", AggAvg: "AVG", AggMin: "MIN", AggMax: "MAX", AggCount: "COUNT",
}

// ToAggregateSQL lowers an AggregateRequest against table (already a
// validated, quoted identifier from the caller's schema lookup) into a
// parameterised SELECT ... GROUP BY statement (spec.md §4.3's
// `toAggregateSQL`, POST /api/aggregate/:model).
func ToAggregateSQL(table string, req AggregateRequest) (string, []any, error) {
	if len(req.Aggregations) == 0 {
		return "", nil, apperr.New(apperr.CodeValidation, "aggregations must not be empty")
	}

	selectParts := make([]string, 0, len(req.GroupBy)+len(req.Aggregations))
	for _, g := range req.GroupBy {
		if err := ValidateIdentifier(g); err != nil {
			return "", nil, err
		}
		selectParts = append(selectParts, fmt.Sprintf(`"%s"`, g))
	}

	aliasPattern := identifierPattern
	for alias, spec := range req.Aggregations {
		if !aliasPattern.MatchString(alias) {
			return "", nil, apperr.Newf(apperr.CodeValidation, "invalid aggregation alias %q", alias)
		}
		if len(spec) != 1 {
			return "", nil, apperr.Newf(apperr.CodeValidation, "aggregation %q must specify exactly one function", alias)
		}
		for fn, col := range spec {
			expr, err := aggregateExpr(fn, col)
			if err != nil {
				return "", nil, err
			}
			selectParts = append(selectParts, fmt.Sprintf("%s AS %q", expr, alias))
		}
	}

	where, err := ParseWhere(req.Where)
	if err != nil {
		return "", nil, err
	}
	lowered, err := Lower(where, 1)
	if err != nil {
		return "", nil, err
	}
	whereSQL, args := AppendTrashedClause(lowered.SQL, lowered.Args, lowered.NextParamIndex, TrashedExclude)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(selectParts, ", "), table, whereSQL)
	if len(req.GroupBy) > 0 {
		quoted := make([]string, len(req.GroupBy))
		for i, g := range req.GroupBy {
			quoted[i] = fmt.Sprintf(`"%s"`, g)
		}
		query += " GROUP BY " + strings.Join(quoted, ", ")
	}
	return query, args, nil
}

func aggregateExpr(fn AggregateFunc, col string) (string, error) {
	if fn == AggDistinct {
		if col == "*" {
			return "", apperr.New(apperr.CodeValidation, "$distinct requires a column, not *")
		}
		if err := ValidateIdentifier(col); err != nil {
			return "", err
		}
		return fmt.Sprintf(`COUNT(DISTINCT "%s")`, col), nil
	}

	sqlFn, ok := aggregateSQLFunc[fn]
	if !ok {
		return "", apperr.Newf(apperr.CodeValidation, "unknown aggregation function %q", fn)
	}
	if col == "*" {
		if fn != AggCount {
			return "", apperr.Newf(apperr.CodeValidation, "%q requires a column, not *", fn)
		}
		return "COUNT(*)", nil
	}
	if err := ValidateIdentifier(col); err != nil {
		return "", err
	}
	return fmt.Sprintf(`%s("%s")`, sqlFn, col), nil
}
