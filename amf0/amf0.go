// Package amf0 implements encoding and decoding of Action Message Format
// version 0 values, the wire format RTMP uses for invoke arguments, data
// (notify) messages and user control payloads.
package amf0

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Marker bytes, as defined by the AMF0 spec.
const (
	TypeNumber      = 0x00
	TypeBool        = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeNull        = 0x05
	TypeUndefined   = 0x06
	TypeRef         = 0x07
	TypeArray       = 0x08
	TypeStrictArray = 0x0A
	TypeDate        = 0x0B
	TypeLongString  = 0x0C
	TypeXMLDoc      = 0x0F
	TypeTypedObject = 0x10

	objectEndCode = 0x09
)

// ErrTruncated is returned when the input buffer ends before a value is
// fully decoded.
var ErrTruncated = errors.New("amf0: truncated value")

// Value is a decoded (or to-be-encoded) AMF0 value. Only one of the
// fields is meaningful at a time, selected by Type.
type Value struct {
	Type    byte
	Bool    bool
	Str     string
	Num     float64
	Object  map[string]*Value
	Array   []*Value
	ClassName string // only set for TypeTypedObject
}

// Number builds a numeric value.
func Number(n float64) Value { return Value{Type: TypeNumber, Num: n} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// String builds a string value.
func String(s string) Value { return Value{Type: TypeString, Str: s} }

// Null builds a null value.
func Null() Value { return Value{Type: TypeNull} }

// Undefined builds an undefined value.
func Undefined() Value { return Value{Type: TypeUndefined} }

// Object builds an (empty) object value ready to receive properties.
func Object() Value { return Value{Type: TypeObject, Object: make(map[string]*Value)} }

// Set attaches a property to an object value. No-op on non-object values.
func (v *Value) Set(key string, prop Value) {
	if v.Type != TypeObject && v.Type != TypeArray && v.Type != TypeTypedObject {
		return
	}
	if v.Object == nil {
		v.Object = make(map[string]*Value)
	}
	v.Object[key] = &prop
}

// Get returns the named property of an object value, or an Undefined
// value if it is absent or v is not an object.
func (v *Value) Get(key string) Value {
	if v.Object == nil {
		return Undefined()
	}
	if p, ok := v.Object[key]; ok && p != nil {
		return *p
	}
	return Undefined()
}

// GetInt64 returns the number truncated toward zero, or zero for non-numbers.
func (v *Value) GetInt64() int64 {
	if v.Type != TypeNumber {
		return 0
	}
	return int64(v.Num)
}

// IsNull reports whether the value is AMF0 null.
func (v *Value) IsNull() bool { return v.Type == TypeNull }

// IsUndefined reports whether the value is AMF0 undefined.
func (v *Value) IsUndefined() bool { return v.Type == TypeUndefined }

// Find walks objects and arrays recursively looking for a property named
// key, returning the first match. Used to locate e.g. "duration" inside an
// onMetaData payload, which may be nested arbitrarily deep.
func Find(v Value, key string) (Value, bool) {
	if v.Type == TypeObject || v.Type == TypeArray || v.Type == TypeTypedObject {
		if p, ok := v.Object[key]; ok && p != nil {
			return *p, true
		}
		for _, p := range v.Object {
			if p == nil {
				continue
			}
			if found, ok := Find(*p, key); ok {
				return found, true
			}
		}
	}
	if v.Type == TypeStrictArray {
		for _, e := range v.Array {
			if e == nil {
				continue
			}
			if found, ok := Find(*e, key); ok {
				return found, true
			}
		}
	}
	return Value{}, false
}

// Encode serializes a single AMF0 value, including its leading marker byte.
func Encode(v Value) []byte {
	out := []byte{v.Type}

	switch v.Type {
	case TypeNumber:
		out = append(out, encodeNumber(v.Num)...)
	case TypeBool:
		if v.Bool {
			out = append(out, 0x01)
		} else {
			out = append(out, 0x00)
		}
	case TypeString, TypeXMLDoc:
		out = append(out, encodeString(v.Str)...)
	case TypeLongString:
		out = append(out, encodeLongString(v.Str)...)
	case TypeObject:
		out = append(out, encodeObject(v.Object)...)
	case TypeTypedObject:
		out = append(out, encodeString(v.ClassName)...)
		out = append(out, encodeObject(v.Object)...)
	case TypeArray:
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(v.Object)))
		out = append(out, l...)
		out = append(out, encodeObject(v.Object)...)
	case TypeStrictArray:
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(v.Array)))
		out = append(out, l...)
		for _, e := range v.Array {
			out = append(out, Encode(*e)...)
		}
	case TypeRef:
		l := make([]byte, 2)
		binary.BigEndian.PutUint16(l, uint16(v.Num))
		out = append(out, l...)
	case TypeNull, TypeUndefined:
		// no payload
	}

	return out
}

func encodeNumber(n float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(n))
	return b
}

func encodeString(s string) []byte {
	b := []byte(s)
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(b)))
	return append(l, b...)
}

func encodeLongString(s string) []byte {
	b := []byte(s)
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(b)))
	return append(l, b...)
}

// encodeObject emits properties in sorted key order, for deterministic
// output (tests and wire captures both depend on this).
func encodeObject(o map[string]*Value) []byte {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0)
	for _, k := range keys {
		out = append(out, encodeString(k)...)
		out = append(out, Encode(*o[k])...)
	}
	out = append(out, encodeString("")...)
	out = append(out, objectEndCode)
	return out
}

// decoder walks a byte buffer, tracking position.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) read(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) peekByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, ErrTruncated
	}
	return d.buf[d.pos], nil
}

// Decode parses one AMF0 value starting at the front of buf, returning the
// value and the number of bytes consumed.
func Decode(buf []byte) (Value, int, error) {
	d := &decoder{buf: buf}
	v, err := d.readOne()
	return v, d.pos, err
}

func (d *decoder) readOne() (Value, error) {
	t, err := d.read(1)
	if err != nil {
		return Value{}, err
	}
	v := Value{Type: t[0]}

	switch v.Type {
	case TypeNumber:
		b, err := d.read(8)
		if err != nil {
			return v, err
		}
		v.Num = math.Float64frombits(binary.BigEndian.Uint64(b))
	case TypeBool:
		b, err := d.read(1)
		if err != nil {
			return v, err
		}
		v.Bool = b[0] != 0x00
	case TypeDate:
		if _, err := d.read(2); err != nil {
			return v, err
		}
		b, err := d.read(8)
		if err != nil {
			return v, err
		}
		v.Num = math.Float64frombits(binary.BigEndian.Uint64(b))
	case TypeString, TypeXMLDoc:
		s, err := d.readString()
		if err != nil {
			return v, err
		}
		v.Str = s
	case TypeLongString:
		s, err := d.readLongString()
		if err != nil {
			return v, err
		}
		v.Str = s
	case TypeObject:
		o, err := d.readObject()
		if err != nil {
			return v, err
		}
		v.Object = o
	case TypeTypedObject:
		cn, err := d.readString()
		if err != nil {
			return v, err
		}
		o, err := d.readObject()
		if err != nil {
			return v, err
		}
		v.ClassName = cn
		v.Object = o
	case TypeRef:
		if _, err := d.read(2); err != nil {
			return v, err
		}
	case TypeArray:
		if _, err := d.read(4); err != nil {
			return v, err
		}
		o, err := d.readObject()
		if err != nil {
			return v, err
		}
		v.Object = o
	case TypeStrictArray:
		a, err := d.readStrictArray()
		if err != nil {
			return v, err
		}
		v.Array = a
	case TypeNull, TypeUndefined:
		// no payload
	default:
		return v, fmt.Errorf("amf0: unsupported marker 0x%02x", v.Type)
	}

	return v, nil
}

func (d *decoder) readString() (string, error) {
	b, err := d.read(2)
	if err != nil {
		return "", err
	}
	l := binary.BigEndian.Uint16(b)
	s, err := d.read(int(l))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func (d *decoder) readLongString() (string, error) {
	b, err := d.read(4)
	if err != nil {
		return "", err
	}
	l := binary.BigEndian.Uint32(b)
	s, err := d.read(int(l))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func (d *decoder) readObject() (map[string]*Value, error) {
	o := make(map[string]*Value)

	for {
		b, err := d.peekByte()
		if err != nil {
			return o, err
		}
		if b == objectEndCode {
			d.pos++
			return o, nil
		}

		key, err := d.readString()
		if err != nil {
			return o, err
		}

		b, err = d.peekByte()
		if err != nil {
			return o, err
		}
		if b == objectEndCode {
			d.pos++
			return o, nil
		}

		val, err := d.readOne()
		if err != nil {
			return o, err
		}
		o[key] = &val
	}
}

func (d *decoder) readStrictArray() ([]*Value, error) {
	b, err := d.read(4)
	if err != nil {
		return nil, err
	}
	l := binary.BigEndian.Uint32(b)

	out := make([]*Value, 0, l)
	for i := uint32(0); i < l; i++ {
		v, err := d.readOne()
		if err != nil {
			return out, err
		}
		out = append(out, &v)
	}
	return out, nil
}
