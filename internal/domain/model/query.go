package model

// QueryResult holds the rows returned by the read-only SQL query interface.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}
