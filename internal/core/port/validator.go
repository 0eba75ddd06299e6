package port

// QueryValidator validates SQL statements before they reach a TableSource.
type QueryValidator interface {
	Validate(sql string) error
}
