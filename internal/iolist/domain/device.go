package iolist

import (
	"errors"
	"strings"
	"time"
)

// Protocol is a device communication protocol.
type Protocol string

// The closed protocol set.
const (
	ProtocolMQTT   Protocol = "MQTT"
	ProtocolNMEA   Protocol = "NMEA"
	ProtocolOPCUA  Protocol = "OPCUA"
	ProtocolOPCDA  Protocol = "OPCDA"
	ProtocolModbus Protocol = "MODBUS"
)

// NormalizeProtocol validates a protocol string. Case and separator
// characters are ignored, so "opc-ua" and "OPC UA" both mean OPCUA.
func NormalizeProtocol(value string) (Protocol, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(value))
	for _, sep := range []string{" ", "-", "_"} {
		cleaned = strings.ReplaceAll(cleaned, sep, "")
	}
	switch Protocol(cleaned) {
	case ProtocolMQTT:
		return ProtocolMQTT, true
	case ProtocolNMEA:
		return ProtocolNMEA, true
	case ProtocolOPCUA:
		return ProtocolOPCUA, true
	case ProtocolOPCDA:
		return ProtocolOPCDA, true
	case ProtocolModbus:
		return ProtocolModbus, true
	default:
		return "", false
	}
}

// Device is a named source system under a header. Items reference devices
// by free-text Resource values; no foreign key is enforced.
type Device struct {
	ID        int64
	HeaderID  int64
	Name      string
	Protocol  Protocol
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the device fields.
func (d *Device) Validate() error {
	if d == nil {
		return errors.New("iolist: nil device")
	}
	if d.HeaderID == 0 {
		return errors.New("iolist: device without header")
	}
	if d.Name == "" {
		return errors.New("iolist: empty device name")
	}
	if _, ok := NormalizeProtocol(string(d.Protocol)); !ok {
		return ErrInvalidProtocol
	}
	return nil
}
