package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Entry represents an audit log entry for one mutation.
type Entry struct {
	Actor     string
	Role      string
	Action    string
	Resource  string
	Detail    json.RawMessage
	CreatedAt time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// Actions recorded by the service.
const (
	ActionUpload       = "iolist.upload"
	ActionHeaderDelete = "iolist.header.delete"
	ActionItemCreate   = "iolist.item.create"
	ActionItemUpdate   = "iolist.item.update"
	ActionItemDelete   = "iolist.item.delete"
	ActionDeviceCreate = "iolist.device.create"
	ActionDeviceUpdate = "iolist.device.update"
	ActionDeviceDelete = "iolist.device.delete"
	ActionDPExport     = "iolist.export.dp"
)

// Nop is a Logger that discards entries, for tests and auditless setups.
type Nop struct{}

// Log implements Logger.
func (Nop) Log(ctx context.Context, entry Entry) error { return nil }
