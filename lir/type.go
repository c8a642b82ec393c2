package lir

import "fmt"

// Type is the machine-level type of a value or a local variable.
type Type byte

const (
	TypeInvalid Type = iota
	TypeI8
	TypeU8
	TypeI16
	TypeU16
	TypeI32
	TypeU32
	TypeI64
	TypeU64
	TypeF32
	TypeF64
	// TypeRef is an exact reference to the start of a managed object.
	TypeRef
	// TypeByref is an interior pointer which may point into a managed object.
	TypeByref
	// TypeStruct is a value carried in more than one register.
	TypeStruct
)

// PointerSize is the size of TypeRef and TypeByref values.
const PointerSize = 8

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeI8:
		return "i8"
	case TypeU8:
		return "u8"
	case TypeI16:
		return "i16"
	case TypeU16:
		return "u16"
	case TypeI32:
		return "i32"
	case TypeU32:
		return "u32"
	case TypeI64:
		return "i64"
	case TypeU64:
		return "u64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeRef:
		return "ref"
	case TypeByref:
		return "byref"
	case TypeStruct:
		return "struct"
	}
	return fmt.Sprintf("invalid(%d)", byte(t))
}

// Size returns the size in bytes of this type. TypeStruct and TypeInvalid have no natural size.
func (t Type) Size() int {
	switch t {
	case TypeI8, TypeU8:
		return 1
	case TypeI16, TypeU16:
		return 2
	case TypeI32, TypeU32, TypeF32:
		return 4
	case TypeI64, TypeU64, TypeF64, TypeRef, TypeByref:
		return 8
	}
	return 0
}

// IsInt returns true if this is an integer type of any width.
func (t Type) IsInt() bool {
	return t >= TypeI8 && t <= TypeU64
}

// IsUnsigned returns true if this is an unsigned integer type.
func (t Type) IsUnsigned() bool {
	switch t {
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return true
	}
	return false
}

// IsSmall returns true for integer types narrower than 32 bits.
func (t Type) IsSmall() bool {
	return t.IsInt() && t.Size() < 4
}

// IsFloat returns true for floating point types.
func (t Type) IsFloat() bool {
	return t == TypeF32 || t == TypeF64
}

// GCKind returns how the garbage collector must treat a value of this type.
func (t Type) GCKind() GCKind {
	switch t {
	case TypeRef:
		return GCRef
	case TypeByref:
		return GCByref
	}
	return GCNone
}

// IsGC returns true if a value of this type must be reported to the garbage collector.
func (t Type) IsGC() bool {
	return t.GCKind() != GCNone
}

// ActualType returns the type a value of this type has once it is loaded in a register:
// small integers are widened to 32 bits.
func (t Type) ActualType() Type {
	switch t {
	case TypeI8, TypeI16:
		return TypeI32
	case TypeU8, TypeU16:
		return TypeU32
	}
	return t
}

// RegType returns the register class that holds values of this type.
func (t Type) RegType() RegType {
	switch {
	case t.IsFloat():
		return RegTypeFloat
	case t == TypeInvalid || t == TypeStruct:
		return RegTypeInvalid
	}
	return RegTypeInt
}

// GCKind classifies a register or stack slot for garbage collection reporting.
type GCKind byte

const (
	// GCNone is a non-pointer.
	GCNone GCKind = iota
	// GCRef is an exact object reference.
	GCRef
	// GCByref is an interior pointer.
	GCByref
)

// String implements fmt.Stringer.
func (k GCKind) String() string {
	switch k {
	case GCRef:
		return "ref"
	case GCByref:
		return "byref"
	}
	return "npt"
}
