// Package domain contains core business entities for the heat-pump bridge.
package domain

import "errors"

// Catalog errors.
var (
	ErrCatalog          = errors.New("invalid register catalog")
	ErrDuplicateAddress = errors.New("duplicate register address within bank")
	ErrInvalidRange     = errors.New("writable field min must be below max")
	ErrFieldKeyRequired = errors.New("field key is required")
	ErrInvalidEncoding  = errors.New("invalid field encoding")
	ErrFieldNotFound    = errors.New("field not found in catalog")
)

// Connection errors.
var (
	ErrConnectionFailed  = errors.New("connection failed")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrInvalidUnitID     = errors.New("invalid unit ID")
)

// Read/Write errors.
var (
	ErrReadFailed       = errors.New("read operation failed")
	ErrWriteFailed      = errors.New("write operation failed")
	ErrDecodeFailed     = errors.New("decode failed")
	ErrWriteRejected    = errors.New("write rejected: coordinator is in read-only mode")
	ErrValueOutOfRange  = errors.New("value out of range for field")
	ErrFieldNotWritable = errors.New("field is not writable")
)

// Modbus exception responses, translated from the device's exception codes.
var (
	ErrModbusIllegalFunction = errors.New("modbus: illegal function")
	ErrModbusIllegalAddress  = errors.New("modbus: illegal data address")
	ErrModbusIllegalValue    = errors.New("modbus: illegal data value")
	ErrModbusDeviceFailure   = errors.New("modbus: slave device failure")
	ErrModbusAcknowledge     = errors.New("modbus: acknowledge - long operation in progress")
	ErrModbusBusy            = errors.New("modbus: slave device busy")
)

// MQTT errors.
var (
	ErrMQTTConnectionFailed = errors.New("MQTT connection failed")
	ErrMQTTPublishFailed    = errors.New("MQTT publish failed")
)

// ModbusExceptionToError converts a Modbus exception code to a domain error.
func ModbusExceptionToError(code byte) error {
	switch code {
	case 0x01:
		return ErrModbusIllegalFunction
	case 0x02:
		return ErrModbusIllegalAddress
	case 0x03:
		return ErrModbusIllegalValue
	case 0x04:
		return ErrModbusDeviceFailure
	case 0x05:
		return ErrModbusAcknowledge
	case 0x06:
		return ErrModbusBusy
	default:
		return ErrReadFailed
	}
}
