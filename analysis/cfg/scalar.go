package cfg

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// IntTy is the type of a switch discriminant.
type IntTy int

const (
	Isize IntTy = iota
	I8
	I16
	I32
	I64
	I128
	Usize
	U8
	U16
	U32
	U64
	U128
)

var intTys = []struct {
	name   string
	bits   uint
	signed bool
}{
	{"isize", 64, true},
	{"i8", 8, true},
	{"i16", 16, true},
	{"i32", 32, true},
	{"i64", 64, true},
	{"i128", 128, true},
	{"usize", 64, false},
	{"u8", 8, false},
	{"u16", 16, false},
	{"u32", 32, false},
	{"u64", 64, false},
	{"u128", 128, false},
}

func (t IntTy) String() string {
	if int(t) < len(intTys) {
		return intTys[t].name
	}
	return fmt.Sprintf("IntTy(%d)", int(t))
}

func (t IntTy) Signed() bool { return intTys[t].signed }
func (t IntTy) Bits() uint   { return intTys[t].bits }

func ParseIntTy(s string) (IntTy, error) {
	for i, ty := range intTys {
		if ty.name == s {
			return IntTy(i), nil
		}
	}
	return 0, errors.Errorf("unknown integer type %q", s)
}

// Min and Max are the inclusive bounds of the type.
func (t IntTy) Min() *big.Int {
	if !t.Signed() {
		return new(big.Int)
	}
	return new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), t.Bits()-1))
}

func (t IntTy) Max() *big.Int {
	bits := t.Bits()
	if t.Signed() {
		bits--
	}
	m := new(big.Int).Lsh(big.NewInt(1), bits)
	return m.Sub(m, big.NewInt(1))
}

// Scalar is an integer constant of a given integer type.
// The zero Scalar is 0 of type isize.
type Scalar struct {
	Ty IntTy
	v  *big.Int
}

// NewScalar checks that v fits in ty.
func NewScalar(ty IntTy, v *big.Int) (Scalar, error) {
	if v.Cmp(ty.Min()) < 0 || v.Cmp(ty.Max()) > 0 {
		return Scalar{}, errors.Errorf("value %s out of bounds for %s", v, ty)
	}
	return Scalar{ty, new(big.Int).Set(v)}, nil
}

// ParseScalar reads a decimal (or 0x/0o/0b prefixed) literal of type ty.
func ParseScalar(ty IntTy, text string) (Scalar, error) {
	v, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return Scalar{}, errors.Errorf("invalid integer literal %q", text)
	}
	return NewScalar(ty, v)
}

// MustScalar is NewScalar for values known to fit. It panics otherwise.
func MustScalar(ty IntTy, v int64) Scalar {
	s, err := NewScalar(ty, big.NewInt(v))
	if err != nil {
		panic(err)
	}
	return s
}

func (s Scalar) value() *big.Int {
	if s.v == nil {
		return new(big.Int)
	}
	return s.v
}

// Int returns a copy of the value.
func (s Scalar) Int() *big.Int {
	return new(big.Int).Set(s.value())
}

// Cmp orders scalars numerically.
func (s Scalar) Cmp(o Scalar) int {
	return s.value().Cmp(o.value())
}

func (s Scalar) Equal(o Scalar) bool {
	return s.Ty == o.Ty && s.Cmp(o) == 0
}

func (s Scalar) String() string {
	return s.value().String()
}

// TypedString includes the type as a suffix, e.g. 3_u8.
func (s Scalar) TypedString() string {
	return s.String() + "_" + s.Ty.String()
}
