// Package filter is the query/filter engine (spec.md §4.3): it parses a
// document-style filter expression into a typed AST and lowers that AST
// to a safely parameterised SQL fragment. Every literal becomes a bound
// parameter; every identifier is validated before it is quoted — the
// teacher's per-store hand-written WHERE builders
// (pkg/incident.buildFilterClauses, pkg/incident.Search) are the direct
// ancestor of this shape, generalized into one typed parser + one
// lowering pass instead of one builder per call site.
package filter

// Document is the top-level filter request (spec.md §4.3).
type Document struct {
	Select  []string       `json:"select,omitempty"`
	Where   any            `json:"where,omitempty"`
	Order   []OrderClause  `json:"order,omitempty"`
	Limit   *int           `json:"limit,omitempty"`
	Offset  *int           `json:"offset,omitempty"`
	Options Options        `json:"options,omitempty"`
}

// OrderClause is one entry of an ORDER BY list.
type OrderClause struct {
	Field string `json:"field"`
	Sort  string `json:"sort"` // "asc" | "desc"
}

// TrashedOption is the soft-delete visibility option (spec.md §4.3).
type TrashedOption string

const (
	TrashedExclude TrashedOption = "exclude"
	TrashedInclude TrashedOption = "include"
	TrashedOnly    TrashedOption = "only"
)

// Options carries the soft-delete visibility switch and any future
// per-request query options.
type Options struct {
	Trashed TrashedOption `json:"trashed,omitempty"`
}

// Node is one node of the parsed WHERE AST.
type Node interface {
	isNode()
}

// FieldPredicate is `{field: {$op: value}}` or the field-value-map
// shorthand `{field: value}` (implicit $eq).
type FieldPredicate struct {
	Field    string
	Operator Operator
	Value    any
}

func (FieldPredicate) isNode() {}

// Logical is `$and`/`$or`/`$not`/`$nand`/`$nor` combining sub-nodes.
type Logical struct {
	Operator LogicalOperator
	Children []Node
}

func (Logical) isNode() {}

// And is an implicit top-level AND of several FieldPredicate/Logical
// nodes (a WHERE document with more than one key).
type And struct {
	Children []Node
}

func (And) isNode() {}

// Operator is a field-predicate operator.
type Operator string

const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpGt     Operator = "$gt"
	OpGte    Operator = "$gte"
	OpLt     Operator = "$lt"
	OpLte    Operator = "$lte"
	OpIn     Operator = "$in"
	OpNin    Operator = "$nin"
	OpLike   Operator = "$like"
	OpNlike  Operator = "$nlike"
	OpIlike  Operator = "$ilike"
	OpNilike Operator = "$nilike"
	OpRegex  Operator = "$regex"
	OpNregex Operator = "$nregex"
	OpAny    Operator = "$any"
	OpAll    Operator = "$all"
	OpNany   Operator = "$nany"
	OpNall   Operator = "$nall"
	OpSize   Operator = "$size"
	OpBetween Operator = "$between"
	OpExists Operator = "$exists"
	OpNull   Operator = "$null"
	OpFind   Operator = "$find"
	OpText   Operator = "$text"
)

// LogicalOperator is a logical combinator.
type LogicalOperator string

const (
	LogAnd  LogicalOperator = "$and"
	LogOr   LogicalOperator = "$or"
	LogNot  LogicalOperator = "$not"
	LogNand LogicalOperator = "$nand"
	LogNor  LogicalOperator = "$nor"
)

// AggregateFunc is an aggregation operator (spec.md §4.3's
// `toAggregateSQL`).
type AggregateFunc string

const (
	AggSum      AggregateFunc = "$sum"
	AggAvg      AggregateFunc = "$avg"
	AggMin      AggregateFunc = "$min"
	AggMax      AggregateFunc = "$max"
	AggCount    AggregateFunc = "$count"
	AggDistinct AggregateFunc = "$distinct"
)

// AggregateRequest is the body of `POST /api/aggregate/:model`.
type AggregateRequest struct {
	Aggregations map[string]map[AggregateFunc]string `json:"aggregations"`
	GroupBy      []string                            `json:"group_by,omitempty"`
	Where        any                                  `json:"where,omitempty"`
}
