package value

import (
	"math/big"
	"testing"
)

func TestIntValueZeroIsOneLimbTagOnly(t *testing.T) {
	v := IntValue(big.NewInt(0))
	if v.Kind != KindCompound || len(v.Compound) != 1 {
		t.Fatalf("expected zero to encode as a single-scalar compound, got %#v", v)
	}
	if v.Compound[0].Scalar != 0 {
		t.Errorf("expected zero tag scalar 0, got %d", v.Compound[0].Scalar)
	}
}

func TestIntValueNegativeSetsSignBit(t *testing.T) {
	v := IntValue(big.NewInt(-5))
	tag := v.Compound[0].Scalar
	if tag&0x8000_0000 == 0 {
		t.Error("expected sign bit set for a negative integer")
	}
	if v.Compound[1].Scalar != 5 {
		t.Errorf("expected magnitude limb 5, got %d", v.Compound[1].Scalar)
	}
}

func TestStringValueRoundTripsAsCharScalars(t *testing.T) {
	v := StringValue("ab")
	if v.Kind != KindCompound || len(v.Compound) != 3 {
		t.Fatalf("expected length prefix + 2 char scalars, got %#v", v)
	}
	if v.Compound[1].Scalar != 'a' || v.Compound[2].Scalar != 'b' {
		t.Errorf("unexpected char scalars: %v %v", v.Compound[1], v.Compound[2])
	}
}
