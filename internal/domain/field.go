// Package domain contains core business entities for the heat-pump bridge.
package domain

// Encoding describes how the raw register words of a field are interpreted.
type Encoding string

const (
	EncodingSigned16   Encoding = "signed16"   // one register, 16-bit signed integer
	EncodingUnsigned16 Encoding = "unsigned16" // one register, 16-bit unsigned integer
	EncodingFloat32BE  Encoding = "float32be"  // two registers, IEEE 754 single, high word first
)

// Bank selects which Modbus read function applies to a field's address.
type Bank string

const (
	BankHolding Bank = "holding" // Read Holding Registers (0x03)
	BankInput   Bank = "input"   // Read Input Registers (0x04)
)

// AccessMode defines read/write access for a field.
type AccessMode string

const (
	AccessReadOnly  AccessMode = "read"
	AccessReadWrite AccessMode = "readwrite"
)

// FieldDescriptor is a named, typed, scaled view over one or two registers.
// Descriptors are built once at startup and never mutated.
type FieldDescriptor struct {
	// Key is the unique identifier for this field within the catalog.
	Key string `json:"key" yaml:"key"`

	// Name is a human-readable name for the field.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Address is the Modbus register address (0-65535). Float32 fields
	// occupy this address and the next one.
	Address uint16 `json:"address" yaml:"address"`

	// Encoding specifies how the raw register words are decoded.
	Encoding Encoding `json:"encoding" yaml:"encoding"`

	// Scale is multiplied with the decoded raw value to get the
	// engineering value.
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`

	// Access specifies whether the field accepts writes.
	Access AccessMode `json:"access,omitempty" yaml:"access,omitempty"`

	// Bank selects holding vs input registers for reads.
	Bank Bank `json:"bank,omitempty" yaml:"bank,omitempty"`

	// Min and Max bound the engineering value for writable numeric
	// fields. Both zero means unbounded.
	Min float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Unit is the engineering unit (e.g. "°C", "bar", "kW").
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// RegisterCount returns the number of 16-bit registers the field spans.
func (f *FieldDescriptor) RegisterCount() uint16 {
	if f.Encoding == EncodingFloat32BE {
		return 2
	}
	return 1
}

// IsWritable returns true if the field accepts write operations.
func (f *FieldDescriptor) IsWritable() bool {
	return f.Access == AccessReadWrite
}

// HasRange returns true if the field carries a min/max bound.
func (f *FieldDescriptor) HasRange() bool {
	return f.Min != 0 || f.Max != 0
}
