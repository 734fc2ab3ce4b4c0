package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const createHeadersTable = `
CREATE TABLE IF NOT EXISTS iolist_headers (
	id BIGSERIAL PRIMARY KEY,
	uuid TEXT NOT NULL UNIQUE,
	hull_no TEXT NOT NULL,
	imo TEXT NOT NULL,
	date_key TEXT NOT NULL,
	file_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createItemsTable = `
CREATE TABLE IF NOT EXISTS iolist_items (
	id BIGSERIAL PRIMARY KEY,
	header_id BIGINT NOT NULL REFERENCES iolist_headers(id) ON DELETE CASCADE,
	raw_data TEXT NOT NULL,
	io_no TEXT NOT NULL DEFAULT '',
	io_name TEXT NOT NULL DEFAULT '',
	io_type TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	remarks TEXT NOT NULL DEFAULT '',
	data_channel_id TEXT NOT NULL DEFAULT '',
	is_duplicate_data_channel_id BOOLEAN NOT NULL DEFAULT FALSE,
	is_duplicate_description BOOLEAN NOT NULL DEFAULT FALSE,
	is_duplicate_mqtt_tag BOOLEAN NOT NULL DEFAULT FALSE,
	has_missing_required BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createItemsHeaderIndex = `
CREATE INDEX IF NOT EXISTS idx_iolist_items_header ON iolist_items (header_id, id)`

const createDevicesTable = `
CREATE TABLE IF NOT EXISTS iolist_devices (
	id BIGSERIAL PRIMARY KEY,
	header_id BIGINT NOT NULL REFERENCES iolist_headers(id) ON DELETE CASCADE,
	device_name TEXT NOT NULL,
	protocol TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (header_id, device_name)
)`

const createAuditLogsTable = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	actor TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the tables used by the service when they do not
// exist yet. It is safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("postgres: nil db")
	}
	statements := []string{
		createHeadersTable,
		createItemsTable,
		createItemsHeaderIndex,
		createDevicesTable,
		createAuditLogsTable,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}
