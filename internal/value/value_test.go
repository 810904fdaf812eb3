package value

import "testing"

func TestEqualNumericCrossType(t *testing.T) {
	if !Equal(Int(1), Float(1.0)) {
		t.Error("expected 1 == 1.0")
	}
	if Equal(Int(1), String("1")) {
		t.Error("expected mismatched types to be unequal, not an error")
	}
}

func TestCompareTotalOrder(t *testing.T) {
	vals := []Value{Null, Bool(true), Int(1), String("a"), Array([]Value{}), Object(map[string]Value{})}
	for i := 0; i < len(vals)-1; i++ {
		if Compare(vals[i], vals[i+1]) >= 0 {
			t.Errorf("expected %v < %v in total order", vals[i], vals[i+1])
		}
	}
}

func TestArithOverflowPromotesToFloat(t *testing.T) {
	r := Arith(Int(9223372036854775807), "+", Int(1))
	if r.Kind != KindFloat {
		t.Errorf("expected overflow to promote to float, got kind %v", r.Kind)
	}
}

func TestArithDivisionByZeroIsNull(t *testing.T) {
	if !Arith(Int(1), "/", Int(0)).IsNull() {
		t.Error("expected division by zero to yield null")
	}
	if !Arith(Float(1), "%", Float(0)).IsNull() {
		t.Error("expected modulo by zero to yield null")
	}
}

func TestArithNonNumericIsNull(t *testing.T) {
	if !Arith(String("x"), "+", Int(1)).IsNull() {
		t.Error("expected non-numeric operand to yield null")
	}
}

func TestThreeValuedLogic(t *testing.T) {
	if And(False, Unknown) != False {
		t.Error("false AND unknown should be false")
	}
	if And(True, Unknown) != Unknown {
		t.Error("true AND unknown should be unknown")
	}
	if Or(True, Unknown) != True {
		t.Error("true OR unknown should be true")
	}
	if Or(False, Unknown) != Unknown {
		t.Error("false OR unknown should be unknown")
	}
	if Not(Unknown) != Unknown {
		t.Error("NOT unknown should be unknown")
	}
}

func TestCompareTruthStringOrdering(t *testing.T) {
	if CompareTruth(String("a"), "<", String("b")) != True {
		t.Error("expected full ordering support for strings per spec §4.6")
	}
}

func TestCompareTruthNullIsUnknown(t *testing.T) {
	if CompareTruth(Null, "=", Int(1)) != Unknown {
		t.Error("expected null operand to yield unknown")
	}
}
