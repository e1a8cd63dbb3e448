package persistence

// SQL column types per dialect
const (
	SQLTypeVarchar255 = "VARCHAR(255)"
	SQLTypeLongText   = "LONGTEXT"
	SQLTypeText       = "TEXT"
	SQLTypeDateTime   = "DATETIME"
)

// SQL keywords shared by the statement builders
const (
	KeywordCreateTable = "CREATE TABLE IF NOT EXISTS"
	KeywordPrimaryKey  = "PRIMARY KEY"
	KeywordNotNull     = "NOT NULL"
	KeywordOnDuplicate = "ON DUPLICATE KEY UPDATE"
	KeywordOnConflict  = "ON CONFLICT"

	// likeEscape escapes LIKE wildcards in key prefixes; '_' occurs in backup keys
	likeEscape = '!'
)

// Blob table columns
const (
	ColumnBlobKey   = "blob_key"
	ColumnPayload   = "payload"
	ColumnUpdatedAt = "updated_at"
)
