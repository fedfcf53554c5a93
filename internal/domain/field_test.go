package domain_test

import (
	"errors"
	"testing"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
)

func TestFieldDescriptor_RegisterCount(t *testing.T) {
	tests := []struct {
		encoding domain.Encoding
		expected uint16
	}{
		{domain.EncodingSigned16, 1},
		{domain.EncodingUnsigned16, 1},
		{domain.EncodingFloat32BE, 2},
	}

	for _, tt := range tests {
		f := domain.FieldDescriptor{Key: "x", Encoding: tt.encoding}
		if got := f.RegisterCount(); got != tt.expected {
			t.Errorf("encoding %q: expected %d registers, got %d", tt.encoding, tt.expected, got)
		}
	}
}

func TestFieldDescriptor_IsWritable(t *testing.T) {
	readOnly := domain.FieldDescriptor{Key: "x", Access: domain.AccessReadOnly}
	if readOnly.IsWritable() {
		t.Error("read access must not be writable")
	}

	writable := domain.FieldDescriptor{Key: "x", Access: domain.AccessReadWrite}
	if !writable.IsWritable() {
		t.Error("readwrite access must be writable")
	}
}

func TestFieldDescriptor_HasRange(t *testing.T) {
	unbounded := domain.FieldDescriptor{Key: "x"}
	if unbounded.HasRange() {
		t.Error("zero min and max means unbounded")
	}

	bounded := domain.FieldDescriptor{Key: "x", Min: 0, Max: 120}
	if !bounded.HasRange() {
		t.Error("a non-zero max means bounded")
	}
}

func TestModbusExceptionToError(t *testing.T) {
	tests := []struct {
		code     byte
		expected error
	}{
		{0x01, domain.ErrModbusIllegalFunction},
		{0x02, domain.ErrModbusIllegalAddress},
		{0x03, domain.ErrModbusIllegalValue},
		{0x04, domain.ErrModbusDeviceFailure},
		{0x05, domain.ErrModbusAcknowledge},
		{0x06, domain.ErrModbusBusy},
		{0xFF, domain.ErrReadFailed},
	}

	for _, tt := range tests {
		if err := domain.ModbusExceptionToError(tt.code); !errors.Is(err, tt.expected) {
			t.Errorf("code 0x%02X: expected %v, got %v", tt.code, tt.expected, err)
		}
	}
}
