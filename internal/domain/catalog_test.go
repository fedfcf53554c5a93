package domain_test

import (
	"errors"
	"testing"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
)

func TestNewRegisterMap_AppliesDefaults(t *testing.T) {
	catalog, err := domain.NewRegisterMap([]domain.FieldDescriptor{
		{Key: "bare", Address: 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	field, err := catalog.Field("bare")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field.Encoding != domain.EncodingSigned16 {
		t.Errorf("expected default encoding signed16, got %q", field.Encoding)
	}
	if field.Scale != 1.0 {
		t.Errorf("expected default scale 1.0, got %v", field.Scale)
	}
	if field.Bank != domain.BankHolding {
		t.Errorf("expected default bank holding, got %q", field.Bank)
	}
	if field.Access != domain.AccessReadOnly {
		t.Errorf("expected default access read, got %q", field.Access)
	}
}

func TestNewRegisterMap_Validation(t *testing.T) {
	tests := []struct {
		name    string
		fields  []domain.FieldDescriptor
		wantErr error
	}{
		{
			name:    "missing key",
			fields:  []domain.FieldDescriptor{{Address: 100}},
			wantErr: domain.ErrFieldKeyRequired,
		},
		{
			name: "duplicate key",
			fields: []domain.FieldDescriptor{
				{Key: "a", Address: 100},
				{Key: "a", Address: 101},
			},
			wantErr: domain.ErrCatalog,
		},
		{
			name:    "unknown encoding",
			fields:  []domain.FieldDescriptor{{Key: "a", Address: 100, Encoding: "float64"}},
			wantErr: domain.ErrInvalidEncoding,
		},
		{
			name: "duplicate address same bank",
			fields: []domain.FieldDescriptor{
				{Key: "a", Address: 100},
				{Key: "b", Address: 100},
			},
			wantErr: domain.ErrDuplicateAddress,
		},
		{
			name: "float32 claims the next address",
			fields: []domain.FieldDescriptor{
				{Key: "a", Address: 100, Encoding: domain.EncodingFloat32BE},
				{Key: "b", Address: 101},
			},
			wantErr: domain.ErrDuplicateAddress,
		},
		{
			name: "inverted range on writable field",
			fields: []domain.FieldDescriptor{
				{Key: "a", Address: 100, Access: domain.AccessReadWrite, Min: 30, Max: 10},
			},
			wantErr: domain.ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewRegisterMap(tt.fields)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewRegisterMap_SameAddressDifferentBanks(t *testing.T) {
	// Holding and input registers are separate address spaces.
	_, err := domain.NewRegisterMap([]domain.FieldDescriptor{
		{Key: "a", Address: 100, Bank: domain.BankHolding},
		{Key: "b", Address: 100, Bank: domain.BankInput},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewRegisterMap_InvertedRangeOnReadOnlyField(t *testing.T) {
	// Range validation only applies to writable fields.
	_, err := domain.NewRegisterMap([]domain.FieldDescriptor{
		{Key: "a", Address: 100, Min: 30, Max: 10},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegisterMap_FieldLookup(t *testing.T) {
	catalog, err := domain.NewRegisterMap(domain.DefaultCatalog())
	if err != nil {
		t.Fatalf("default catalog must be valid: %v", err)
	}

	field, err := catalog.Field("setpoint_temperature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field.Address != 0x0068 {
		t.Errorf("expected address 0x0068, got 0x%04X", field.Address)
	}
	if field.Scale != 0.1 {
		t.Errorf("expected scale 0.1, got %v", field.Scale)
	}

	if _, err := catalog.Field("does_not_exist"); !errors.Is(err, domain.ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog, err := domain.NewRegisterMap(domain.DefaultCatalog())
	if err != nil {
		t.Fatalf("default catalog must be valid: %v", err)
	}
	if catalog.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	// Writable setpoints must carry a range; sensor readings must not
	// accept writes.
	target, err := catalog.Field("target_room_temperature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.IsWritable() || !target.HasRange() {
		t.Error("target_room_temperature must be writable with a range")
	}

	supply, err := catalog.Field("supply_temperature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if supply.IsWritable() {
		t.Error("supply_temperature must not be writable")
	}
	if supply.Bank != domain.BankInput {
		t.Errorf("expected supply_temperature in the input bank, got %q", supply.Bank)
	}
}
