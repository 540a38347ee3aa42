package bigint

import "testing"

func TestParseAndString(t *testing.T) {
	tests := []string{"0", "42", "-42", "1000000000", "999999999999999999", "-123456789123456789"}
	for _, s := range tests {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := v.String(); got != s {
			t.Errorf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseInf(t *testing.T) {
	v, err := Parse("inf")
	if err != nil || !v.IsInf() || v.IsNeg() {
		t.Fatalf("Parse(inf) = %+v, err=%v", v, err)
	}
	v, err = Parse("-inf")
	if err != nil || !v.IsInf() || !v.IsNeg() {
		t.Fatalf("Parse(-inf) = %+v, err=%v", v, err)
	}
}

func TestAddSub(t *testing.T) {
	a := FromInt64(123456789012345)
	b := FromInt64(987654321098765)
	sum := Add(a, b)
	if sum.Float64() != 123456789012345.0+987654321098765.0 {
		t.Errorf("Add mismatch: %v", sum)
	}
	diff := Sub(a, b)
	if Cmp(diff, Neg(Sub(b, a))) != 0 {
		t.Errorf("Sub not anti-symmetric: %v", diff)
	}
}

func TestMul(t *testing.T) {
	a := FromInt64(123456789)
	b := FromInt64(987654321)
	got := Mul(a, b)
	want, _ := Parse("121932631112635269")
	if !Equal(got, want) {
		t.Errorf("Mul(123456789, 987654321) = %v, want %v", got, want)
	}
}

func TestDivModIdentity(t *testing.T) {
	pairs := [][2]int64{{17, 5}, {-17, 5}, {17, -5}, {-17, -5}, {100, 7}, {0, 9}}
	for _, p := range pairs {
		a := FromInt64(p[0])
		b := FromInt64(p[1])
		q := Div(a, b)
		r := Mod(a, b)
		check := Add(Mul(q, b), r)
		if !Equal(check, a) {
			t.Errorf("(%d/%d)*%d+(%d%%%d) = %v, want %v", p[0], p[1], p[1], p[0], p[1], check, a)
		}
	}
}

func TestDivByZeroIsInf(t *testing.T) {
	a := FromInt64(5)
	z := FromInt64(0)
	got := Div(a, z)
	if !got.IsInf() {
		t.Errorf("Div(5, 0) = %v, want inf", got)
	}
}

func TestPowFactSqrt(t *testing.T) {
	two := FromInt64(2)
	ten := FromInt64(10)
	got := Pow(two, ten)
	want := FromInt64(1024)
	if !Equal(got, want) {
		t.Errorf("Pow(2, 10) = %v, want %v", got, want)
	}

	five := FromInt64(5)
	gotFact := Fact(five)
	wantFact := FromInt64(120)
	if !Equal(gotFact, wantFact) {
		t.Errorf("Fact(5) = %v, want %v", gotFact, wantFact)
	}

	hundred := FromInt64(100)
	gotSqrt := Sqrt(hundred)
	if !Equal(gotSqrt, FromInt64(10)) {
		t.Errorf("Sqrt(100) = %v, want 10", gotSqrt)
	}
}

func TestCmp(t *testing.T) {
	if Cmp(FromInt64(1), FromInt64(2)) >= 0 {
		t.Error("1 should be < 2")
	}
	if Cmp(FromInt64(-1), FromInt64(1)) >= 0 {
		t.Error("-1 should be < 1")
	}
	if Cmp(FromInt64(5), FromInt64(5)) != 0 {
		t.Error("5 should equal 5")
	}
}
