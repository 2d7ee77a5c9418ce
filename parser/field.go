package parser

import (
	"fmt"
	"strings"
)

type FieldType int

const (
	FieldInteger FieldType = iota
	FieldFloat
	FieldBoolean
	FieldString
	FieldEnum
	FieldBitmask
	FieldBytes
)

func (ft FieldType) String() string {
	switch ft {
	case FieldInteger:
		return "integer"
	case FieldFloat:
		return "float"
	case FieldBoolean:
		return "boolean"
	case FieldString:
		return "string"
	case FieldEnum:
		return "enum"
	case FieldBitmask:
		return "bitmask"
	case FieldBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Status is the validation outcome of a field. The zero value is Unknown and
// statuses are ordered by severity.
type Status int

const (
	StatusUnknown Status = iota
	StatusValid
	StatusWarning
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) Symbol() string {
	switch s {
	case StatusValid:
		return "✓"
	case StatusWarning:
		return "⚠"
	case StatusError:
		return "✗"
	default:
		return "?"
	}
}

// BitRange is an inclusive (start, end) window in payload bit numbering, bit 0
// being the MSB of byte 0. Negative ranges point at frame metadata.
type BitRange struct {
	Start int
	End   int
}

var (
	BitsCANID = BitRange{-12, -1}
	BitsDLC   = BitRange{-4, -1}
)

func (b BitRange) Metadata() bool {
	return b.Start < 0
}

type Bounds struct {
	Min float64
	Max float64
}

// Field is one named value extracted from a payload. It is immutable, the
// validation outcome is settled by NewField.
type Field struct {
	name        string
	value       any
	unit        string
	description string
	fieldType   FieldType
	raw         uint64
	rawBytes    []byte
	bits        BitRange
	bounds      *Bounds
	enum        map[int64]string
	scale       float64
	offset      float64

	status  Status
	message string
}

type FieldOpt func(f *Field)

func WithUnit(unit string) FieldOpt {
	return func(f *Field) { f.unit = unit }
}

func WithDescription(desc string) FieldOpt {
	return func(f *Field) { f.description = desc }
}

func WithRaw(raw uint64) FieldOpt {
	return func(f *Field) { f.raw = raw }
}

func WithRawBytes(b []byte) FieldOpt {
	return func(f *Field) {
		f.rawBytes = append([]byte(nil), b...)
	}
}

func WithBits(start, end int) FieldOpt {
	return func(f *Field) { f.bits = BitRange{start, end} }
}

func WithBitRange(r BitRange) FieldOpt {
	return func(f *Field) { f.bits = r }
}

func WithBounds(min, max float64) FieldOpt {
	return func(f *Field) { f.bounds = &Bounds{Min: min, Max: max} }
}

func WithEnum(values map[int64]string) FieldOpt {
	return func(f *Field) { f.enum = values }
}

func WithScale(factor, offset float64) FieldOpt {
	return func(f *Field) {
		f.scale = factor
		f.offset = offset
	}
}

// WithStatus declares the decoder's own verdict. A computed range or enum
// failure still wins over a milder declared status.
func WithStatus(status Status, msg string) FieldOpt {
	return func(f *Field) {
		f.status = status
		f.message = msg
	}
}

func NewField(name string, ft FieldType, value any, opts ...FieldOpt) Field {
	f := Field{
		name:      name,
		value:     value,
		fieldType: ft,
		scale:     1,
	}
	for _, o := range opts {
		o(&f)
	}
	if st, msg := f.check(); st > f.status {
		f.status = st
		if msg != "" || st == StatusError {
			f.message = msg
		}
	}
	return f
}

func (f *Field) check() (Status, string) {
	switch f.fieldType {
	case FieldEnum:
		if f.enum == nil {
			return StatusUnknown, ""
		}
		v, ok := toInt(f.value)
		if !ok {
			return StatusError, fmt.Sprintf("Invalid enum value: %v", f.value)
		}
		if _, ok := f.enum[v]; !ok {
			return StatusError, fmt.Sprintf("Invalid enum value: %v", f.value)
		}
		return StatusValid, ""
	case FieldInteger, FieldFloat:
		if f.bounds == nil {
			return StatusValid, ""
		}
		v, ok := toFloat(f.value)
		if !ok {
			return StatusUnknown, ""
		}
		if v < f.bounds.Min {
			return StatusError, fmt.Sprintf("Value %v below minimum %v", f.value, f.bounds.Min)
		}
		if v > f.bounds.Max {
			return StatusError, fmt.Sprintf("Value %v above maximum %v", f.value, f.bounds.Max)
		}
		return StatusValid, ""
	}
	return StatusUnknown, ""
}

func (f Field) Name() string          { return f.name }
func (f Field) Value() any            { return f.value }
func (f Field) Unit() string          { return f.unit }
func (f Field) Description() string   { return f.description }
func (f Field) Type() FieldType       { return f.fieldType }
func (f Field) Raw() uint64           { return f.raw }
func (f Field) Bits() BitRange        { return f.bits }
func (f Field) Bounds() *Bounds       { return f.bounds }
func (f Field) Status() Status        { return f.status }
func (f Field) StatusMessage() string { return f.message }

func (f Field) Scale() (factor, offset float64) {
	return f.scale, f.offset
}

func (f Field) RawBytes() []byte {
	return append([]byte(nil), f.rawBytes...)
}

// EnumLabel returns the label for the field's value if it is an enum member.
func (f Field) EnumLabel() (string, bool) {
	v, ok := toInt(f.value)
	if !ok || f.enum == nil {
		return "", false
	}
	label, ok := f.enum[v]
	return label, ok
}

// Overlaps reports whether the field's bit range intersects [start, end].
func (f Field) Overlaps(start, end int) bool {
	return !(f.bits.End < start || f.bits.Start > end)
}

func (f Field) FormatValue() string {
	switch f.fieldType {
	case FieldBoolean:
		if b, ok := f.value.(bool); ok && b {
			return "ON"
		}
		return "OFF"
	case FieldEnum:
		if f.enum != nil {
			if label, ok := f.EnumLabel(); ok {
				return label
			}
			return fmt.Sprintf("Unknown (%v)", f.value)
		}
	case FieldFloat:
		if v, ok := toFloat(f.value); ok {
			return fmt.Sprintf("%.2f", v)
		}
	case FieldBytes:
		if b, ok := f.value.([]byte); ok {
			return hexSpaced(b)
		}
	}
	return fmt.Sprint(f.value)
}

func (f Field) String() string {
	var out strings.Builder
	out.WriteString(f.status.Symbol() + " " + f.name + ": " + f.FormatValue())
	if f.unit != "" {
		out.WriteString(" " + f.unit)
	}
	if f.message != "" {
		out.WriteString(" (" + f.message + ")")
	}
	return out.String()
}

func hexSpaced(b []byte) string {
	var out strings.Builder
	for i, v := range b {
		if i > 0 {
			out.WriteByte(' ')
		}
		fmt.Fprintf(&out, "%02X", v)
	}
	return out.String()
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	if i, ok := toInt(v); ok {
		if u, isU64 := v.(uint64); isU64 {
			return float64(u), true
		}
		return float64(i), true
	}
	return 0, false
}
