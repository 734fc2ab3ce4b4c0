package memory

import (
	"context"
	"sort"
	"sync"

	"dp-manager/internal/iolist/application"
	iolist "dp-manager/internal/iolist/domain"
)

// Store is an in-memory implementation of the iolist store. Each header
// owns a mutex, so item mutations and flag recomputation for one header
// are serialized while different headers proceed independently.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	headers  map[int64]*iolist.Header
	items    map[int64]map[int64]*iolist.Item
	devices  map[int64]map[int64]*iolist.Device
	headerMu map[int64]*sync.Mutex
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		headers:  make(map[int64]*iolist.Header),
		items:    make(map[int64]map[int64]*iolist.Item),
		devices:  make(map[int64]map[int64]*iolist.Device),
		headerMu: make(map[int64]*sync.Mutex),
	}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// CreateHeader persists a header with its items and devices atomically.
func (s *Store) CreateHeader(ctx context.Context, header *iolist.Header, items []*iolist.Item, devices []*iolist.Device) error {
	_ = ctx
	if header == nil {
		return iolist.ErrHeaderNotFound
	}
	if err := header.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	header.ID = s.allocID()
	header.ItemCount = len(items)
	s.headers[header.ID] = cloneHeader(header)
	s.items[header.ID] = make(map[int64]*iolist.Item, len(items))
	s.devices[header.ID] = make(map[int64]*iolist.Device, len(devices))
	s.headerMu[header.ID] = &sync.Mutex{}

	for _, item := range items {
		item.ID = s.allocID()
		item.HeaderID = header.ID
		s.items[header.ID][item.ID] = item.Clone()
	}
	for _, device := range devices {
		device.ID = s.allocID()
		device.HeaderID = header.ID
		s.devices[header.ID][device.ID] = cloneDevice(device)
	}
	return nil
}

// GetHeader loads one header, nil when absent.
func (s *Store) GetHeader(ctx context.Context, id int64) (*iolist.Header, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	header, ok := s.headers[id]
	if !ok {
		return nil, nil
	}
	out := cloneHeader(header)
	out.ItemCount = len(s.items[id])
	return out, nil
}

// ListHeaders lists headers matching the filter, newest first.
func (s *Store) ListHeaders(ctx context.Context, filter application.HeaderFilter) ([]*iolist.Header, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*iolist.Header
	for id, header := range s.headers {
		if filter.HullNo != "" && header.HullNo != filter.HullNo {
			continue
		}
		if filter.IMO != "" && header.IMO != filter.IMO {
			continue
		}
		if filter.DateKey != "" && header.DateKey != filter.DateKey {
			continue
		}
		out := cloneHeader(header)
		out.ItemCount = len(s.items[id])
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteHeader removes a header and cascades to items and devices.
func (s *Store) DeleteHeader(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[id]; !ok {
		return iolist.ErrHeaderNotFound
	}
	delete(s.headers, id)
	delete(s.items, id)
	delete(s.devices, id)
	delete(s.headerMu, id)
	return nil
}

// ListItems returns the items of a header in ascending id order.
func (s *Store) ListItems(ctx context.Context, headerID int64) ([]*iolist.Item, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsLocked(headerID), nil
}

func (s *Store) itemsLocked(headerID int64) []*iolist.Item {
	set := s.items[headerID]
	result := make([]*iolist.Item, 0, len(set))
	for _, item := range set {
		result = append(result, item.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// MutateItems runs fn under the header's critical section.
func (s *Store) MutateItems(ctx context.Context, headerID int64, fn func(ctx context.Context, tx application.HeaderTx) error) error {
	s.mu.RLock()
	lock, ok := s.headerMu[headerID]
	s.mu.RUnlock()
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	lock.Lock()
	defer lock.Unlock()
	return fn(ctx, &headerTx{store: s, headerID: headerID})
}

type headerTx struct {
	store    *Store
	headerID int64
}

func (tx *headerTx) Items(ctx context.Context) ([]*iolist.Item, error) {
	_ = ctx
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	return tx.store.itemsLocked(tx.headerID), nil
}

func (tx *headerTx) InsertItem(ctx context.Context, item *iolist.Item) error {
	_ = ctx
	if item == nil {
		return iolist.ErrItemNotFound
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	set, ok := tx.store.items[tx.headerID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	item.ID = tx.store.allocID()
	item.HeaderID = tx.headerID
	if err := item.Validate(); err != nil {
		return err
	}
	set[item.ID] = item.Clone()
	return nil
}

func (tx *headerTx) UpdateItem(ctx context.Context, item *iolist.Item) error {
	_ = ctx
	if item == nil {
		return iolist.ErrItemNotFound
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	set, ok := tx.store.items[tx.headerID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	if _, ok := set[item.ID]; !ok {
		return iolist.ErrItemNotFound
	}
	set[item.ID] = item.Clone()
	return nil
}

func (tx *headerTx) DeleteItem(ctx context.Context, itemID int64) error {
	_ = ctx
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	set, ok := tx.store.items[tx.headerID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	if _, ok := set[itemID]; !ok {
		return iolist.ErrItemNotFound
	}
	delete(set, itemID)
	return nil
}

func (tx *headerTx) SaveFlags(ctx context.Context, items []*iolist.Item) error {
	_ = ctx
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	set, ok := tx.store.items[tx.headerID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	for _, item := range items {
		stored, ok := set[item.ID]
		if !ok {
			continue
		}
		stored.IsDuplicateDataChannelID = item.IsDuplicateDataChannelID
		stored.IsDuplicateDescription = item.IsDuplicateDescription
		stored.IsDuplicateMQTTTag = item.IsDuplicateMQTTTag
		stored.HasMissingRequired = item.HasMissingRequired
	}
	return nil
}

// ListDevices returns the devices of a header in ascending id order.
func (s *Store) ListDevices(ctx context.Context, headerID int64) ([]*iolist.Device, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.devices[headerID]
	result := make([]*iolist.Device, 0, len(set))
	for _, device := range set {
		result = append(result, cloneDevice(device))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreateDevice registers a device; names are unique per header.
func (s *Store) CreateDevice(ctx context.Context, device *iolist.Device) error {
	_ = ctx
	if device == nil {
		return iolist.ErrDeviceNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.devices[device.HeaderID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	for _, existing := range set {
		if existing.Name == device.Name {
			return iolist.ErrDeviceExists
		}
	}
	device.ID = s.allocID()
	set[device.ID] = cloneDevice(device)
	return nil
}

// UpdateDevice replaces a stored device.
func (s *Store) UpdateDevice(ctx context.Context, device *iolist.Device) error {
	_ = ctx
	if device == nil {
		return iolist.ErrDeviceNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.devices[device.HeaderID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	if _, ok := set[device.ID]; !ok {
		return iolist.ErrDeviceNotFound
	}
	for id, existing := range set {
		if id != device.ID && existing.Name == device.Name {
			return iolist.ErrDeviceExists
		}
	}
	set[device.ID] = cloneDevice(device)
	return nil
}

// DeleteDevice removes a device.
func (s *Store) DeleteDevice(ctx context.Context, headerID, deviceID int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.devices[headerID]
	if !ok {
		return iolist.ErrHeaderNotFound
	}
	if _, ok := set[deviceID]; !ok {
		return iolist.ErrDeviceNotFound
	}
	delete(set, deviceID)
	return nil
}

// FilterValues returns the distinct filter values across all headers.
func (s *Store) FilterValues(ctx context.Context) (application.FilterValues, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	hulls := make(map[string]struct{})
	imos := make(map[string]struct{})
	dates := make(map[string]struct{})
	for _, header := range s.headers {
		hulls[header.HullNo] = struct{}{}
		imos[header.IMO] = struct{}{}
		dates[header.DateKey] = struct{}{}
	}
	values := application.FilterValues{
		HullNos:  sortedKeys(hulls),
		IMOs:     sortedKeys(imos),
		DateKeys: sortedKeys(dates),
	}
	// Date keys are listed newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(values.DateKeys)))
	return values, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func cloneHeader(h *iolist.Header) *iolist.Header {
	out := *h
	return &out
}

func cloneDevice(d *iolist.Device) *iolist.Device {
	out := *d
	return &out
}
