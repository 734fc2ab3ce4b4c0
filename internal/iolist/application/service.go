package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	iolist "dp-manager/internal/iolist/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Sheet is the tokenized content of an uploaded workbook: the header row
// plus data rows of the IO List sheet, and the optional device sheet.
type Sheet struct {
	Columns []string
	Rows    [][]string
	Devices []SheetDevice
}

// SheetDevice is one row of the device sheet.
type SheetDevice struct {
	Name     string
	Protocol string
}

// UploadResult reports a completed ingestion.
type UploadResult struct {
	Header      *iolist.Header
	DeviceCount int
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	DuplicatesOnly      bool
	MissingRequiredOnly bool
}

// MissingRequiredEntry names an empty business-required column on an item.
type MissingRequiredEntry struct {
	ItemID int64  `json:"item_id"`
	Column string `json:"column"`
}

// ValidationSummary is the per-header quality report: duplicate value
// groups (value to item ids) and missing-required entries.
type ValidationSummary struct {
	DuplicateDataChannelIDs map[string][]int64     `json:"duplicate_data_channel_ids"`
	DuplicateDescriptions   map[string][]int64     `json:"duplicate_descriptions"`
	DuplicateMQTTTags       map[string][]int64     `json:"duplicate_mqtt_tags"`
	MissingRequired         []MissingRequiredEntry `json:"missing_required_values"`
}

// Service implements the ingestion, mutation and query operations of the
// IO List pipeline. Quality flags are advisory state, never errors: they
// are recomputed for the full sibling set inside the same critical section
// as every item mutation.
type Service struct {
	store  Store
	naming *iolist.NamingRegistry
	clock  Clock
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithNamingRegistry assigns a naming rule registry.
func WithNamingRegistry(registry *iolist.NamingRegistry) ServiceOption {
	return func(s *Service) {
		if registry != nil {
			s.naming = registry
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("iolist service: nil store")
	}
	s := &Service{store: store, naming: iolist.NewNamingRegistry(), clock: systemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upload ingests one spreadsheet: normalize, validate, derive identifiers,
// analyze the full set, and persist header with items and devices in a
// single write. A failure at any step leaves no partial state behind.
func (s *Service) Upload(ctx context.Context, fileName string, sheet Sheet) (*UploadResult, error) {
	hullNo, imo, err := iolist.ParseFilename(fileName)
	if err != nil {
		return nil, err
	}

	records, err := iolist.NormalizeRows(sheet.Columns, sheet.Rows)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	header := &iolist.Header{
		UUID:      uuid.NewString(),
		HullNo:    hullNo,
		IMO:       imo,
		DateKey:   iolist.FormatDateKey(now),
		FileName:  fileName,
		ItemCount: len(records),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	items := make([]*iolist.Item, 0, len(records))
	for _, record := range records {
		item := &iolist.Item{Raw: record, CreatedAt: now, UpdatedAt: now}
		item.Reproject(s.naming)
		items = append(items, item)
	}
	iolist.Analyze(items)

	devices := make([]*iolist.Device, 0, len(sheet.Devices))
	seen := make(map[string]struct{}, len(sheet.Devices))
	for _, entry := range sheet.Devices {
		if entry.Name == "" {
			continue
		}
		if _, dup := seen[entry.Name]; dup {
			continue
		}
		seen[entry.Name] = struct{}{}
		protocol, ok := iolist.NormalizeProtocol(entry.Protocol)
		if !ok {
			protocol = iolist.ProtocolMQTT
		}
		devices = append(devices, &iolist.Device{
			Name:      entry.Name,
			Protocol:  protocol,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.store.CreateHeader(ctx, header, items, devices); err != nil {
		return nil, err
	}
	return &UploadResult{Header: header, DeviceCount: len(devices)}, nil
}

// GetHeader loads one header.
func (s *Service) GetHeader(ctx context.Context, id int64) (*iolist.Header, error) {
	header, err := s.store.GetHeader(ctx, id)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, iolist.ErrHeaderNotFound
	}
	return header, nil
}

// ListHeaders lists headers matching the filter.
func (s *Service) ListHeaders(ctx context.Context, filter HeaderFilter) ([]*iolist.Header, error) {
	return s.store.ListHeaders(ctx, filter)
}

// DeleteHeader removes a header and cascades to its items and devices.
func (s *Service) DeleteHeader(ctx context.Context, id int64) error {
	return s.store.DeleteHeader(ctx, id)
}

// FilterValues returns the distinct hull numbers, IMOs and date keys.
func (s *Service) FilterValues(ctx context.Context) (FilterValues, error) {
	return s.store.FilterValues(ctx)
}

// ListItems returns the items of a header, optionally narrowed to
// duplicates or missing-required entries.
func (s *Service) ListItems(ctx context.Context, headerID int64, filter ItemFilter) ([]*iolist.Item, error) {
	if _, err := s.GetHeader(ctx, headerID); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, headerID)
	if err != nil {
		return nil, err
	}
	if !filter.DuplicatesOnly && !filter.MissingRequiredOnly {
		return items, nil
	}
	filtered := make([]*iolist.Item, 0, len(items))
	for _, item := range items {
		if filter.DuplicatesOnly {
			if !item.IsDuplicateDataChannelID && !item.IsDuplicateDescription && !item.IsDuplicateMQTTTag {
				continue
			}
		}
		if filter.MissingRequiredOnly && !item.HasMissingRequired {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}

// CreateItem adds one item under a header and reanalyzes the sibling set.
func (s *Service) CreateItem(ctx context.Context, headerID int64, raw iolist.RowData) (*iolist.Item, error) {
	if raw.Len() == 0 {
		return nil, errors.New("iolist service: empty raw data")
	}
	now := s.clock.Now().UTC()
	created := &iolist.Item{HeaderID: headerID, Raw: raw, CreatedAt: now, UpdatedAt: now}
	created.Reproject(s.naming)

	err := s.store.MutateItems(ctx, headerID, func(ctx context.Context, tx HeaderTx) error {
		if err := tx.InsertItem(ctx, created); err != nil {
			return err
		}
		return reanalyze(ctx, tx, func(items []*iolist.Item) {
			for _, item := range items {
				if item.ID == created.ID {
					*created = *item.Clone()
				}
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateItem replaces an item's raw data, reprojects its cached fields and
// reanalyzes the sibling set.
func (s *Service) UpdateItem(ctx context.Context, headerID, itemID int64, raw iolist.RowData) (*iolist.Item, error) {
	if raw.Len() == 0 {
		return nil, errors.New("iolist service: empty raw data")
	}
	var updated *iolist.Item
	err := s.store.MutateItems(ctx, headerID, func(ctx context.Context, tx HeaderTx) error {
		items, err := tx.Items(ctx)
		if err != nil {
			return err
		}
		var target *iolist.Item
		for _, item := range items {
			if item.ID == itemID {
				target = item
				break
			}
		}
		if target == nil {
			return iolist.ErrItemNotFound
		}
		target.Raw = raw.Clone()
		target.Reproject(s.naming)
		target.UpdatedAt = s.clock.Now().UTC()
		if err := tx.UpdateItem(ctx, target); err != nil {
			return err
		}
		return reanalyze(ctx, tx, func(items []*iolist.Item) {
			for _, item := range items {
				if item.ID == itemID {
					updated = item.Clone()
				}
			}
		})
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, iolist.ErrItemNotFound
	}
	return updated, nil
}

// DeleteItem removes one item and reanalyzes the remaining siblings.
func (s *Service) DeleteItem(ctx context.Context, headerID, itemID int64) error {
	return s.store.MutateItems(ctx, headerID, func(ctx context.Context, tx HeaderTx) error {
		if err := tx.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return reanalyze(ctx, tx, nil)
	})
}

// reanalyze reloads the full sibling set, recomputes flags and persists
// them within the surrounding critical section.
func reanalyze(ctx context.Context, tx HeaderTx, observe func([]*iolist.Item)) error {
	items, err := tx.Items(ctx)
	if err != nil {
		return err
	}
	iolist.Analyze(items)
	if err := tx.SaveFlags(ctx, items); err != nil {
		return err
	}
	if observe != nil {
		observe(items)
	}
	return nil
}

// Validate recomputes the quality report for a header without mutating it.
func (s *Service) Validate(ctx context.Context, headerID int64) (*ValidationSummary, error) {
	items, err := s.ListItems(ctx, headerID, ItemFilter{})
	if err != nil {
		return nil, err
	}
	summary := &ValidationSummary{
		DuplicateDataChannelIDs: make(map[string][]int64),
		DuplicateDescriptions:   make(map[string][]int64),
		DuplicateMQTTTags:       make(map[string][]int64),
	}
	channelIDs := make(map[string][]int64)
	descriptions := make(map[string][]int64)
	tags := make(map[string][]int64)
	for _, item := range items {
		if item.DataChannelID != "" {
			channelIDs[item.DataChannelID] = append(channelIDs[item.DataChannelID], item.ID)
		}
		if desc := item.Raw.Get(iolist.ColumnDescription); desc != "" {
			descriptions[desc] = append(descriptions[desc], item.ID)
		}
		if tag := item.Raw.Get(iolist.ColumnMQTTTag); tag != "" {
			tags[tag] = append(tags[tag], item.ID)
		}
		for _, col := range iolist.MissingRequiredColumns(item.Raw) {
			summary.MissingRequired = append(summary.MissingRequired, MissingRequiredEntry{ItemID: item.ID, Column: col})
		}
	}
	for value, ids := range channelIDs {
		if len(ids) > 1 {
			summary.DuplicateDataChannelIDs[value] = ids
		}
	}
	for value, ids := range descriptions {
		if len(ids) > 1 {
			summary.DuplicateDescriptions[value] = ids
		}
	}
	for value, ids := range tags {
		if len(ids) > 1 {
			summary.DuplicateMQTTTags[value] = ids
		}
	}
	return summary, nil
}

// ListDevices returns the devices of a header.
func (s *Service) ListDevices(ctx context.Context, headerID int64) ([]*iolist.Device, error) {
	if _, err := s.GetHeader(ctx, headerID); err != nil {
		return nil, err
	}
	return s.store.ListDevices(ctx, headerID)
}

// CreateDevice registers a device under a header.
func (s *Service) CreateDevice(ctx context.Context, headerID int64, name, protocol string) (*iolist.Device, error) {
	if _, err := s.GetHeader(ctx, headerID); err != nil {
		return nil, err
	}
	normalized, ok := iolist.NormalizeProtocol(protocol)
	if !ok {
		return nil, iolist.ErrInvalidProtocol
	}
	now := s.clock.Now().UTC()
	device := &iolist.Device{
		HeaderID:  headerID,
		Name:      name,
		Protocol:  normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateDevice(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// UpdateDevice renames a device or changes its protocol.
func (s *Service) UpdateDevice(ctx context.Context, headerID, deviceID int64, name, protocol string) (*iolist.Device, error) {
	devices, err := s.store.ListDevices(ctx, headerID)
	if err != nil {
		return nil, err
	}
	var target *iolist.Device
	for _, device := range devices {
		if device.ID == deviceID {
			target = device
			break
		}
	}
	if target == nil {
		return nil, iolist.ErrDeviceNotFound
	}
	if name != "" {
		target.Name = name
	}
	if protocol != "" {
		normalized, ok := iolist.NormalizeProtocol(protocol)
		if !ok {
			return nil, iolist.ErrInvalidProtocol
		}
		target.Protocol = normalized
	}
	target.UpdatedAt = s.clock.Now().UTC()
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDevice(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// DeleteDevice removes a device.
func (s *Service) DeleteDevice(ctx context.Context, headerID, deviceID int64) error {
	return s.store.DeleteDevice(ctx, headerID, deviceID)
}
