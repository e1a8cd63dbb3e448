package constants

import (
	"strings"
	"time"
)

// Blob store keys and record metadata
const (
	StorageKey      = "contractGenerator"
	BackupKeyPrefix = StorageKey + "_backup_"
	CustomTypesKey  = "customContractTemplates"

	// BackupDateLayout is the suffix layout of daily backup keys
	BackupDateLayout = "2006-01-02"

	StateVersion  = "1.0"
	GeneratorName = "汎用契約書ジェネレーター"

	// TableBlobs stores every key for the SQL-backed stores
	TableBlobs = "contract_blobs"
)

// BackupKey returns the daily backup key for the given day
func BackupKey(day time.Time) string {
	return BackupKeyPrefix + day.Format(BackupDateLayout)
}

// IsBackupKey reports whether key names a daily backup
func IsBackupKey(key string) bool {
	return strings.HasPrefix(key, BackupKeyPrefix)
}

// BackupDate parses the day encoded in a backup key
func BackupDate(key string) (time.Time, bool) {
	if !IsBackupKey(key) {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(BackupDateLayout, strings.TrimPrefix(key, BackupKeyPrefix), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
