// Package ir lowers a parse tree into a per-function, linear, labeled
// three-address intermediate representation, corrects the types of
// under-specified literals, and runs a peephole/constant-fold optimizer
// over the result.
package ir

import "fmt"

// Raw is the scalar base of a DataType.
type Raw int

// The complete set of scalar bases. Unknown is an inference placeholder
// given to literals by the IR builder and removed by the type corrector.
const (
	Unknown Raw = iota
	Void
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
)

var rawNames = [...]string{
	"unknown", "void", "i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64",
}

// String returns the source-level spelling of r, or "unknown" for the
// inference placeholder.
func (r Raw) String() string {
	if r < 0 || int(r) >= len(rawNames) {
		return fmt.Sprintf("Raw(%d)", int(r))
	}
	return rawNames[r]
}

// RawFromToken maps a type keyword lexeme to its Raw, or reports ok=false.
func RawFromToken(s string) (Raw, bool) {
	switch s {
	case "i8":
		return I8, true
	case "u8":
		return U8, true
	case "i16":
		return I16, true
	case "u16":
		return U16, true
	case "i32":
		return I32, true
	case "u32":
		return U32, true
	case "i64":
		return I64, true
	case "u64":
		return U64, true
	case "void":
		return Void, true
	default:
		return Unknown, false
	}
}

// DataType is the triple (raw, ptr_depth, is_ref).
type DataType struct {
	Raw      Raw
	PtrDepth int
	IsRef    bool // true iff this value is the result of an address-yielding expression
}

// NewDataType returns a DataType with is_ref cleared.
func NewDataType(raw Raw, ptrDepth int) DataType {
	return DataType{Raw: raw, PtrDepth: ptrDepth}
}

// Signed reports whether dt is a signed integer type. Pointers and
// unsigned/void/unknown bases are never signed.
func (dt DataType) Signed() bool {
	if dt.PtrDepth > 0 {
		return false
	}
	switch dt.Raw {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// ByteSize returns the natural size in bytes of dt: 8/16/32/64-bit scalars
// map to 1/2/4/8, void is 0, and any pointer depth above zero is always 8.
func (dt DataType) ByteSize() int {
	if dt.PtrDepth > 0 {
		return 8
	}
	switch dt.Raw {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32:
		return 4
	case I64, U64:
		return 8
	default:
		return 0
	}
}

// AsReference returns a copy of dt with IsRef set.
func (dt DataType) AsReference() DataType {
	dt.IsRef = true
	return dt
}

// Dereferenced returns the DataType reached by removing one level of
// pointer indirection from dt.
func (dt DataType) Dereferenced() DataType {
	dt.PtrDepth--
	dt.IsRef = false
	return dt
}

// Referenced returns the DataType reached by taking the address of a value
// of type dt.
func (dt DataType) Referenced() DataType {
	dt.PtrDepth++
	dt.IsRef = false
	return dt
}

// WithoutRef returns a copy of dt with IsRef cleared. Used whenever a type
// is copied across assignment or propagated during type correction: is_ref
// never survives a copy.
func (dt DataType) WithoutRef() DataType {
	dt.IsRef = false
	return dt
}

// Equal reports whether two types print identically in LLVM (is_ref is not
// part of LLVM type printing, so it is ignored here).
func (dt DataType) Equal(other DataType) bool {
	return dt.Raw == other.Raw && dt.PtrDepth == other.PtrDepth
}

// String renders dt as the raw base followed by one '*' per pointer level.
func (dt DataType) String() string {
	s := dt.Raw.String()
	for i := 0; i < dt.PtrDepth; i++ {
		s += "*"
	}
	return s
}
