package filter

// DBExpr is an arbitrary database-expression document or scalar produced
// by the external math-notation converter (§6.1) or by this package's
// own expression builders. It is always something directly embeddable as
// a pipeline stage value — a map, a slice, a string, or a number.
type DBExpr = any
