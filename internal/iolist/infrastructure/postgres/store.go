package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dp-manager/internal/iolist/application"
	iolist "dp-manager/internal/iolist/domain"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories use.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the Postgres implementation of the iolist store. Item
// mutations run inside a transaction that locks the header row, so
// flag recomputation always sees the full sibling set.
type Store struct {
	db *sql.DB
}

// NewStore constructs a store.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &Store{db: db}, nil
}

const headerColumns = `h.id, h.uuid, h.hull_no, h.imo, h.date_key, h.file_name,
	(SELECT COUNT(*) FROM iolist_items i WHERE i.header_id = h.id),
	h.created_at, h.updated_at`

func scanHeader(scanner interface{ Scan(...any) error }) (*iolist.Header, error) {
	var header iolist.Header
	if err := scanner.Scan(
		&header.ID,
		&header.UUID,
		&header.HullNo,
		&header.IMO,
		&header.DateKey,
		&header.FileName,
		&header.ItemCount,
		&header.CreatedAt,
		&header.UpdatedAt,
	); err != nil {
		return nil, err
	}
	header.CreatedAt = header.CreatedAt.UTC()
	header.UpdatedAt = header.UpdatedAt.UTC()
	return &header, nil
}

// CreateHeader persists a header with its items and devices in one
// transaction.
func (s *Store) CreateHeader(ctx context.Context, header *iolist.Header, items []*iolist.Item, devices []*iolist.Device) error {
	if header == nil {
		return errors.New("postgres: nil header")
	}
	if err := header.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := tx.QueryRowContext(ctx, `
INSERT INTO iolist_headers (uuid, hull_no, imo, date_key, file_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING id`,
		header.UUID, header.HullNo, header.IMO, header.DateKey, header.FileName, now,
	).Scan(&header.ID); err != nil {
		return fmt.Errorf("postgres: insert header: %w", err)
	}
	header.CreatedAt = now
	header.UpdatedAt = now
	header.ItemCount = len(items)

	for _, item := range items {
		item.HeaderID = header.ID
		if err := insertItem(ctx, tx, item); err != nil {
			return err
		}
	}
	for _, device := range devices {
		device.HeaderID = header.ID
		if err := insertDevice(ctx, tx, device); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// GetHeader loads one header, nil when absent.
func (s *Store) GetHeader(ctx context.Context, id int64) (*iolist.Header, error) {
	query := fmt.Sprintf(`SELECT %s FROM iolist_headers h WHERE h.id = $1 LIMIT 1`, headerColumns)
	header, err := scanHeader(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return header, nil
}

// ListHeaders lists headers matching the filter, newest first.
func (s *Store) ListHeaders(ctx context.Context, filter application.HeaderFilter) ([]*iolist.Header, error) {
	var conditions []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("h.%s = $%d", column, len(args)))
	}
	add("hull_no", filter.HullNo)
	add("imo", filter.IMO)
	add("date_key", filter.DateKey)

	query := fmt.Sprintf(`SELECT %s FROM iolist_headers h`, headerColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY h.created_at DESC, h.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*iolist.Header
	for rows.Next() {
		header, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, header)
	}
	return result, rows.Err()
}

// DeleteHeader removes a header; items and devices cascade.
func (s *Store) DeleteHeader(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM iolist_headers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return iolist.ErrHeaderNotFound
	}
	return nil
}

const itemColumns = `id, header_id, raw_data, io_no, io_name, io_type, description, remarks,
	data_channel_id, is_duplicate_data_channel_id, is_duplicate_description,
	is_duplicate_mqtt_tag, has_missing_required, created_at, updated_at`

func scanItem(scanner interface{ Scan(...any) error }) (*iolist.Item, error) {
	var item iolist.Item
	var raw string
	if err := scanner.Scan(
		&item.ID,
		&item.HeaderID,
		&raw,
		&item.IONo,
		&item.IOName,
		&item.IOType,
		&item.Description,
		&item.Remarks,
		&item.DataChannelID,
		&item.IsDuplicateDataChannelID,
		&item.IsDuplicateDescription,
		&item.IsDuplicateMQTTTag,
		&item.HasMissingRequired,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rowData, err := iolist.ParseRowData([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("postgres: item %d raw data: %w", item.ID, err)
	}
	item.Raw = rowData
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func listItems(ctx context.Context, db DBTX, headerID int64) ([]*iolist.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM iolist_items WHERE header_id = $1 ORDER BY id ASC`, itemColumns)
	rows, err := db.QueryContext(ctx, query, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*iolist.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// ListItems returns the items of a header in ascending id order.
func (s *Store) ListItems(ctx context.Context, headerID int64) ([]*iolist.Item, error) {
	return listItems(ctx, s.db, headerID)
}

func insertItem(ctx context.Context, db DBTX, item *iolist.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	raw, err := item.Raw.MarshalJSON()
	if err != nil {
		return fmt.Errorf("postgres: marshal raw data: %w", err)
	}
	now := time.Now().UTC()
	if err := db.QueryRowContext(ctx, `
INSERT INTO iolist_items (
	header_id, raw_data, io_no, io_name, io_type, description, remarks,
	data_channel_id, is_duplicate_data_channel_id, is_duplicate_description,
	is_duplicate_mqtt_tag, has_missing_required, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
RETURNING id`,
		item.HeaderID, string(raw), item.IONo, item.IOName, item.IOType,
		item.Description, item.Remarks, item.DataChannelID,
		item.IsDuplicateDataChannelID, item.IsDuplicateDescription,
		item.IsDuplicateMQTTTag, item.HasMissingRequired, now,
	).Scan(&item.ID); err != nil {
		return fmt.Errorf("postgres: insert item: %w", err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func updateItem(ctx context.Context, db DBTX, item *iolist.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	raw, err := item.Raw.MarshalJSON()
	if err != nil {
		return fmt.Errorf("postgres: marshal raw data: %w", err)
	}
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `
UPDATE iolist_items SET
	raw_data = $1,
	io_no = $2,
	io_name = $3,
	io_type = $4,
	description = $5,
	remarks = $6,
	data_channel_id = $7,
	updated_at = $8
WHERE id = $9 AND header_id = $10`,
		string(raw), item.IONo, item.IOName, item.IOType, item.Description,
		item.Remarks, item.DataChannelID, now, item.ID, item.HeaderID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return iolist.ErrItemNotFound
	}
	item.UpdatedAt = now
	return nil
}

// MutateItems runs fn inside a transaction holding a row lock on the
// header, serializing writers per header.
func (s *Store) MutateItems(ctx context.Context, headerID int64, fn func(ctx context.Context, tx application.HeaderTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM iolist_headers WHERE id = $1 FOR UPDATE`, headerID,
	).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iolist.ErrHeaderNotFound
		}
		return err
	}

	if err := fn(ctx, &headerTx{tx: tx, headerID: headerID}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE iolist_headers SET updated_at = NOW() WHERE id = $1`, headerID,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

type headerTx struct {
	tx       *sql.Tx
	headerID int64
}

func (h *headerTx) Items(ctx context.Context) ([]*iolist.Item, error) {
	return listItems(ctx, h.tx, h.headerID)
}

func (h *headerTx) InsertItem(ctx context.Context, item *iolist.Item) error {
	if item == nil {
		return errors.New("postgres: nil item")
	}
	item.HeaderID = h.headerID
	return insertItem(ctx, h.tx, item)
}

func (h *headerTx) UpdateItem(ctx context.Context, item *iolist.Item) error {
	if item == nil {
		return errors.New("postgres: nil item")
	}
	item.HeaderID = h.headerID
	return updateItem(ctx, h.tx, item)
}

func (h *headerTx) DeleteItem(ctx context.Context, itemID int64) error {
	result, err := h.tx.ExecContext(ctx,
		`DELETE FROM iolist_items WHERE id = $1 AND header_id = $2`, itemID, h.headerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return iolist.ErrItemNotFound
	}
	return nil
}

func (h *headerTx) SaveFlags(ctx context.Context, items []*iolist.Item) error {
	for _, item := range items {
		if _, err := h.tx.ExecContext(ctx, `
UPDATE iolist_items SET
	is_duplicate_data_channel_id = $1,
	is_duplicate_description = $2,
	is_duplicate_mqtt_tag = $3,
	has_missing_required = $4
WHERE id = $5 AND header_id = $6`,
			item.IsDuplicateDataChannelID,
			item.IsDuplicateDescription,
			item.IsDuplicateMQTTTag,
			item.HasMissingRequired,
			item.ID, h.headerID,
		); err != nil {
			return err
		}
	}
	return nil
}

func scanDevice(scanner interface{ Scan(...any) error }) (*iolist.Device, error) {
	var device iolist.Device
	if err := scanner.Scan(
		&device.ID,
		&device.HeaderID,
		&device.Name,
		&device.Protocol,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		return nil, err
	}
	device.CreatedAt = device.CreatedAt.UTC()
	device.UpdatedAt = device.UpdatedAt.UTC()
	return &device, nil
}

// ListDevices returns the devices of a header in ascending id order.
func (s *Store) ListDevices(ctx context.Context, headerID int64) ([]*iolist.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, header_id, device_name, protocol, created_at, updated_at
FROM iolist_devices
WHERE header_id = $1
ORDER BY id ASC`, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*iolist.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}
	return result, rows.Err()
}

func insertDevice(ctx context.Context, db DBTX, device *iolist.Device) error {
	if err := device.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := db.QueryRowContext(ctx, `
INSERT INTO iolist_devices (header_id, device_name, protocol, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (header_id, device_name) DO NOTHING
RETURNING id`,
		device.HeaderID, device.Name, string(device.Protocol), now,
	).Scan(&device.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iolist.ErrDeviceExists
		}
		return fmt.Errorf("postgres: insert device: %w", err)
	}
	device.CreatedAt = now
	device.UpdatedAt = now
	return nil
}

// CreateDevice registers a device; names are unique per header.
func (s *Store) CreateDevice(ctx context.Context, device *iolist.Device) error {
	if device == nil {
		return errors.New("postgres: nil device")
	}
	var exists int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM iolist_headers WHERE id = $1`, device.HeaderID,
	).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iolist.ErrHeaderNotFound
		}
		return err
	}
	return insertDevice(ctx, s.db, device)
}

// UpdateDevice replaces a stored device.
func (s *Store) UpdateDevice(ctx context.Context, device *iolist.Device) error {
	if device == nil {
		return errors.New("postgres: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
UPDATE iolist_devices SET device_name = $1, protocol = $2, updated_at = $3
WHERE id = $4 AND header_id = $5`,
		device.Name, string(device.Protocol), now, device.ID, device.HeaderID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return iolist.ErrDeviceExists
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return iolist.ErrDeviceNotFound
	}
	device.UpdatedAt = now
	return nil
}

// DeleteDevice removes a device.
func (s *Store) DeleteDevice(ctx context.Context, headerID, deviceID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM iolist_devices WHERE id = $1 AND header_id = $2`, deviceID, headerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return iolist.ErrDeviceNotFound
	}
	return nil
}

// FilterValues returns the distinct filter values across all headers.
func (s *Store) FilterValues(ctx context.Context) (application.FilterValues, error) {
	values := application.FilterValues{}
	collect := func(query string, dest *[]string) error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var value string
			if err := rows.Scan(&value); err != nil {
				return err
			}
			*dest = append(*dest, value)
		}
		return rows.Err()
	}
	if err := collect(`SELECT DISTINCT hull_no FROM iolist_headers ORDER BY hull_no ASC`, &values.HullNos); err != nil {
		return values, err
	}
	if err := collect(`SELECT DISTINCT imo FROM iolist_headers ORDER BY imo ASC`, &values.IMOs); err != nil {
		return values, err
	}
	if err := collect(`SELECT DISTINCT date_key FROM iolist_headers ORDER BY date_key DESC`, &values.DateKeys); err != nil {
		return values, err
	}
	return values, nil
}

// isUniqueViolation reports whether err is a Postgres unique violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// CountHeaders reports the number of stored headers, used by metrics.
func (s *Store) CountHeaders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM iolist_headers`).Scan(&count)
	return count, err
}

// CountItems reports the number of stored items, used by metrics.
func (s *Store) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM iolist_items`).Scan(&count)
	return count, err
}
