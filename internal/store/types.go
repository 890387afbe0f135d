package store

import (
	"time"
)

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// StoredResult is one persisted redacted row
type StoredResult struct {
	RunID            string    `db:"run_id" json:"run_id"`
	RowNum           int64     `db:"row_num" json:"row_num"`
	RecordID         string    `db:"record_id" json:"record_id"`
	RedactedDataJSON string    `db:"redacted_data_json" json:"redacted_data_json"`
	IsPII            bool      `db:"is_pii" json:"is_pii"`
	PayloadHash      string    `db:"payload_hash" json:"payload_hash"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// StoreStats represents database statistics
type StoreStats struct {
	TotalRows int64 `json:"total_rows"`
	PIIRows   int64 `json:"pii_rows"`
	CleanRows int64 `json:"clean_rows"`
	Runs      int64 `json:"runs"`
}

// BatchInsertResult represents the result of a batch insert operation
type BatchInsertResult struct {
	Inserted   int64         `json:"inserted"`
	Duplicates int64         `json:"duplicates"`
	Duration   time.Duration `json:"duration"`
}
