package config

const (
	// MaxTitleLength is the maximum length for rundown titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (titles should be short and descriptive).
	MaxTitleLength = 255

	// MaxFieldNameLength is the maximum length for row/custom field keys.
	// Field keys are identifiers, not prose.
	MaxFieldNameLength = 64

	// MaxFieldValueBytes is the maximum encoded size of a single field
	// value. Scripts are the largest legitimate cell content; anything
	// past this is almost certainly a paste accident.
	MaxFieldValueBytes = 256 << 10

	// MaxRowsPerReplace caps the row count of a replace payload (import
	// path). Matches the largest rundowns seen in production with margin.
	MaxRowsPerReplace = 2000

	// MaxHistoryPageSize caps how many raw operations one history page
	// fetches before batching.
	MaxHistoryPageSize = 500
)
