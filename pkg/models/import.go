package models

// ImportRow is a single imported product row keyed by source column header.
type ImportRow map[string]string

// ColumnMapping assigns catalog entity types to source columns. Columns not
// present in the map are ignored by unmapped-value detection.
type ColumnMapping map[string]EntityType

// ImportBatch is a parsed import file or connector pull: the header row plus
// data rows in input order.
type ImportBatch struct {
	Headers []string    `json:"headers"`
	Rows    []ImportRow `json:"rows"`
}
