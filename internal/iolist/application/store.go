package application

import (
	"context"

	iolist "dp-manager/internal/iolist/domain"
)

// HeaderFilter narrows header listings. Empty fields match everything.
type HeaderFilter struct {
	HullNo  string
	IMO     string
	DateKey string
	Offset  int
	Limit   int
}

// FilterValues are the distinct values available for filter controls.
type FilterValues struct {
	HullNos  []string `json:"hull_nos"`
	IMOs     []string `json:"imos"`
	DateKeys []string `json:"date_keys"`
}

// HeaderTx exposes the item set of one header inside a critical section.
// All reads and writes refer to the same locked header, so flag
// recomputation is never interleaved with a concurrent mutation.
type HeaderTx interface {
	Items(ctx context.Context) ([]*iolist.Item, error)
	InsertItem(ctx context.Context, item *iolist.Item) error
	UpdateItem(ctx context.Context, item *iolist.Item) error
	DeleteItem(ctx context.Context, itemID int64) error
	SaveFlags(ctx context.Context, items []*iolist.Item) error
}

// Store is the persistence boundary for headers, items and devices.
// Implementations must make CreateHeader all-or-nothing and must run
// MutateItems callbacks under a per-header critical section.
type Store interface {
	CreateHeader(ctx context.Context, header *iolist.Header, items []*iolist.Item, devices []*iolist.Device) error
	GetHeader(ctx context.Context, id int64) (*iolist.Header, error)
	ListHeaders(ctx context.Context, filter HeaderFilter) ([]*iolist.Header, error)
	DeleteHeader(ctx context.Context, id int64) error

	ListItems(ctx context.Context, headerID int64) ([]*iolist.Item, error)
	MutateItems(ctx context.Context, headerID int64, fn func(ctx context.Context, tx HeaderTx) error) error

	ListDevices(ctx context.Context, headerID int64) ([]*iolist.Device, error)
	CreateDevice(ctx context.Context, device *iolist.Device) error
	UpdateDevice(ctx context.Context, device *iolist.Device) error
	DeleteDevice(ctx context.Context, headerID, deviceID int64) error

	FilterValues(ctx context.Context) (FilterValues, error)
}
