package domain

import "fmt"

// RegisterMap is the static catalog of field descriptors. It is validated
// once at construction and immutable afterward, so the poll engine and the
// write gateway read it concurrently without synchronization.
type RegisterMap struct {
	fields []FieldDescriptor
	byKey  map[string]*FieldDescriptor
}

// NewRegisterMap builds and validates a register map. It fails if two
// descriptors claim the same address within one bank (float32 fields claim
// two consecutive addresses) or if a writable numeric field carries an
// inverted min/max range.
func NewRegisterMap(fields []FieldDescriptor) (*RegisterMap, error) {
	byKey := make(map[string]*FieldDescriptor, len(fields))
	claimed := make(map[Bank]map[uint16]string)

	for i := range fields {
		f := &fields[i]

		if f.Key == "" {
			return nil, fmt.Errorf("%w: descriptor %d: %w", ErrCatalog, i, ErrFieldKeyRequired)
		}
		if _, dup := byKey[f.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate field key %q", ErrCatalog, f.Key)
		}

		switch f.Encoding {
		case EncodingSigned16, EncodingUnsigned16, EncodingFloat32BE:
		case "":
			f.Encoding = EncodingSigned16
		default:
			return nil, fmt.Errorf("%w: field %q: %w: %q", ErrCatalog, f.Key, ErrInvalidEncoding, f.Encoding)
		}

		if f.Scale == 0 {
			f.Scale = 1.0
		}
		if f.Bank == "" {
			f.Bank = BankHolding
		}
		if f.Access == "" {
			f.Access = AccessReadOnly
		}

		if f.IsWritable() && f.HasRange() && f.Min >= f.Max {
			return nil, fmt.Errorf("%w: field %q: %w (min=%v max=%v)",
				ErrCatalog, f.Key, ErrInvalidRange, f.Min, f.Max)
		}

		if claimed[f.Bank] == nil {
			claimed[f.Bank] = make(map[uint16]string)
		}
		for n := uint16(0); n < f.RegisterCount(); n++ {
			addr := f.Address + n
			if owner, taken := claimed[f.Bank][addr]; taken {
				return nil, fmt.Errorf("%w: field %q: %w: 0x%04X already claimed by %q",
					ErrCatalog, f.Key, ErrDuplicateAddress, addr, owner)
			}
			claimed[f.Bank][addr] = f.Key
		}

		byKey[f.Key] = f
	}

	return &RegisterMap{fields: fields, byKey: byKey}, nil
}

// Fields returns all descriptors in catalog order.
func (m *RegisterMap) Fields() []FieldDescriptor {
	return m.fields
}

// Field looks up a descriptor by key.
func (m *RegisterMap) Field(key string) (*FieldDescriptor, error) {
	f, ok := m.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, key)
	}
	return f, nil
}

// Len returns the number of fields in the catalog.
func (m *RegisterMap) Len() int {
	return len(m.fields)
}

// DefaultCatalog returns the built-in Heliotherm register set. Addresses and
// scales follow the vendor's Modbus documentation; temperature, pressure and
// power readings are IEEE 754 floats in the input bank, setpoints live in
// the holding bank.
func DefaultCatalog() []FieldDescriptor {
	return []FieldDescriptor{
		// Temperatures (registers 100-107)
		{Key: "supply_temperature", Name: "Supply Temperature", Address: 0x0064, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "°C"},
		{Key: "return_temperature", Name: "Return Temperature", Address: 0x0066, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "°C"},
		{Key: "setpoint_temperature", Name: "Setpoint Temperature", Address: 0x0068, Encoding: EncodingSigned16, Scale: 0.1, Bank: BankHolding, Unit: "°C"},
		{Key: "outside_temperature", Name: "Outside Temperature", Address: 0x006A, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "°C"},

		// Status registers (110-112)
		{Key: "pump_status", Name: "Pump Status", Address: 0x006E, Encoding: EncodingUnsigned16, Bank: BankInput},
		{Key: "operating_mode", Name: "Operating Mode", Address: 0x006F, Encoding: EncodingUnsigned16, Bank: BankInput},
		{Key: "device_status", Name: "Device Status", Address: 0x0070, Encoding: EncodingSigned16, Bank: BankInput},

		// Pressure and power (120-143)
		{Key: "system_pressure", Name: "System Pressure", Address: 0x0078, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "bar"},
		{Key: "power_output", Name: "Power Output", Address: 0x0082, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "kW"},
		{Key: "coefficient_of_performance", Name: "Coefficient of Performance", Address: 0x0084, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput},
		{Key: "compressor_power_input", Name: "Compressor Power Input", Address: 0x008C, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "kW"},
		{Key: "flow_rate", Name: "Flow Rate", Address: 0x008E, Encoding: EncodingFloat32BE, Scale: 1.0, Bank: BankInput, Unit: "l/min"},

		// Diagnostics (150-151)
		{Key: "operating_hours", Name: "Operating Hours", Address: 0x0096, Encoding: EncodingUnsigned16, Bank: BankInput, Unit: "h"},
		{Key: "error_code", Name: "Error Code", Address: 0x0097, Encoding: EncodingSigned16, Bank: BankInput},

		// Relay controls (200-203), state and command share the address
		{Key: "circulation_pump", Name: "Circulation Pump", Address: 0x00C8, Encoding: EncodingUnsigned16, Access: AccessReadWrite, Bank: BankHolding},
		{Key: "auxiliary_heater", Name: "Auxiliary Heater", Address: 0x00C9, Encoding: EncodingUnsigned16, Access: AccessReadWrite, Bank: BankHolding},
		{Key: "compressor_enable", Name: "Compressor Enable", Address: 0x00CA, Encoding: EncodingUnsigned16, Access: AccessReadWrite, Bank: BankHolding},
		{Key: "hot_water_pump", Name: "Hot Water Circulation Pump", Address: 0x00CB, Encoding: EncodingUnsigned16, Access: AccessReadWrite, Bank: BankHolding},

		// Setpoints (300-311)
		{Key: "target_supply_temperature", Name: "Target Supply Temperature", Address: 0x012C, Encoding: EncodingFloat32BE, Scale: 1.0, Access: AccessReadWrite, Bank: BankHolding, Min: 10.0, Max: 60.0, Unit: "°C"},
		{Key: "target_room_temperature", Name: "Target Room Temperature", Address: 0x012E, Encoding: EncodingSigned16, Scale: 0.1, Access: AccessReadWrite, Bank: BankHolding, Min: 10.0, Max: 30.0, Unit: "°C"},
		{Key: "target_dhw_temperature", Name: "Target DHW Temperature", Address: 0x0130, Encoding: EncodingSigned16, Scale: 0.1, Access: AccessReadWrite, Bank: BankHolding, Min: 30.0, Max: 65.0, Unit: "°C"},
		{Key: "compressor_frequency_target", Name: "Compressor Frequency Target", Address: 0x0132, Encoding: EncodingSigned16, Scale: 1.0, Access: AccessReadWrite, Bank: BankHolding, Min: 0.0, Max: 120.0, Unit: "Hz"},
		{Key: "max_pressure_setpoint", Name: "Maximum Pressure Setpoint", Address: 0x0134, Encoding: EncodingFloat32BE, Scale: 1.0, Access: AccessReadWrite, Bank: BankHolding, Min: 1.0, Max: 35.0, Unit: "bar"},
		{Key: "min_pressure_setpoint", Name: "Minimum Pressure Setpoint", Address: 0x0136, Encoding: EncodingFloat32BE, Scale: 1.0, Access: AccessReadWrite, Bank: BankHolding, Min: 1.0, Max: 35.0, Unit: "bar"},
	}
}
