package iolist

import (
	"errors"
	"time"
)

// Item is one data channel row under a header. Raw is the source of truth;
// the scalar fields below it are projections recomputed on every write.
type Item struct {
	ID       int64
	HeaderID int64
	Raw      RowData

	IONo        string
	IOName      string
	IOType      string
	Description string
	Remarks     string

	DataChannelID string

	IsDuplicateDataChannelID bool
	IsDuplicateDescription   bool
	IsDuplicateMQTTTag       bool
	HasMissingRequired       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reproject recomputes the cached scalar fields and the data channel
// identifier from Raw. It must be called whenever Raw changes; the cached
// fields are never an independent source of truth.
func (i *Item) Reproject(registry *NamingRegistry) {
	i.IONo = i.Raw.Get(ColumnMQTTTag)
	i.Description = i.Raw.Get(ColumnDescription)
	i.IOName = i.Description
	if i.IOName == "" {
		i.IOName = i.Raw.Get(ColumnMeasure)
	}
	i.IOType = i.Raw.Get(ColumnDataType)
	i.Remarks = i.Raw.Get(ColumnRemark)
	i.DataChannelID = registry.Derive(i.Raw)
}

// Validate checks containment.
func (i *Item) Validate() error {
	if i == nil {
		return errors.New("iolist: nil item")
	}
	if i.HeaderID == 0 {
		return errors.New("iolist: item without header")
	}
	if i.Raw.Len() == 0 {
		return errors.New("iolist: item without raw data")
	}
	return nil
}

// Clone returns an independent copy.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	out := *i
	out.Raw = i.Raw.Clone()
	return &out
}
