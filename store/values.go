package store

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPayload is returned when a dynamic payload cannot be decoded.
var ErrMalformedPayload = errors.New("store: malformed payload")

const (
	arrayHeaderSize      = 5
	nodeLabelsHeaderSize = 8
)

// EncodeArray encodes a long array payload.
func EncodeArray(values []int64) []byte {
	b := make([]byte, arrayHeaderSize+8*len(values))
	b[0] = byte(PropertyLong)
	le.PutUint32(b[1:], uint32(len(values)))
	for i, v := range values {
		le.PutUint64(b[arrayHeaderSize+8*i:], uint64(v))
	}
	return b
}

// DecodeArray decodes a long array payload.
func DecodeArray(b []byte) ([]int64, error) {
	if len(b) < arrayHeaderSize {
		return nil, fmt.Errorf("array header of %d bytes: %w", len(b), ErrMalformedPayload)
	}
	if PropertyType(b[0]) != PropertyLong {
		return nil, fmt.Errorf("array element type %d: %w", b[0], ErrMalformedPayload)
	}
	n := int(le.Uint32(b[1:]))
	if len(b)-arrayHeaderSize != 8*n {
		return nil, fmt.Errorf("array of %d elements in %d bytes: %w", n, len(b), ErrMalformedPayload)
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(le.Uint64(b[arrayHeaderSize+8*i:]))
	}
	return out, nil
}

// EncodeNodeLabels encodes the payload of a node-label chain.
func EncodeNodeLabels(owner int64, labels []int32) []byte {
	b := make([]byte, nodeLabelsHeaderSize+4*len(labels))
	le.PutUint64(b, uint64(owner))
	for i, l := range labels {
		le.PutUint32(b[nodeLabelsHeaderSize+4*i:], uint32(l))
	}
	return b
}

// DecodeNodeLabels decodes the payload of a node-label chain.
func DecodeNodeLabels(b []byte) (owner int64, labels []int32, err error) {
	if len(b) < nodeLabelsHeaderSize || (len(b)-nodeLabelsHeaderSize)%4 != 0 {
		return Null, nil, fmt.Errorf("node labels of %d bytes: %w", len(b), ErrMalformedPayload)
	}
	owner = int64(le.Uint64(b))
	labels = make([]int32, (len(b)-nodeLabelsHeaderSize)/4)
	for i := range labels {
		labels[i] = int32(le.Uint32(b[nodeLabelsHeaderSize+4*i:]))
	}
	return owner, labels, nil
}

// Value is a decoded property value.
type Value struct {
	Type   PropertyType
	Bool   bool
	Long   int64
	Double float64
	Text   string
	Array  []int64
}

func (v Value) String() string {
	switch v.Type {
	case PropertyBool:
		return fmt.Sprint(v.Bool)
	case PropertyLong:
		return fmt.Sprint(v.Long)
	case PropertyDouble:
		return fmt.Sprint(v.Double)
	case PropertyString:
		return fmt.Sprintf("%q", v.Text)
	case PropertyArray:
		return fmt.Sprint(v.Array)
	}
	return "<invalid>"
}

// Equal reports whether two values are the same.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case PropertyBool:
		return v.Bool == o.Bool
	case PropertyLong:
		return v.Long == o.Long
	case PropertyDouble:
		return v.Double == o.Double
	case PropertyString:
		return v.Text == o.Text
	case PropertyArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if v.Array[i] != o.Array[i] {
				return false
			}
		}
		return true
	}
	return false
}

// InlineValue decodes a block value that needs no dynamic store.
func InlineValue(b PropertyBlock) (Value, error) {
	switch b.Type {
	case PropertyBool:
		if b.Value != 0 && b.Value != 1 {
			return Value{}, fmt.Errorf("bool value %d: %w", b.Value, ErrMalformedPayload)
		}
		return Value{Type: PropertyBool, Bool: b.Value == 1}, nil
	case PropertyLong:
		return Value{Type: PropertyLong, Long: b.Value}, nil
	case PropertyDouble:
		return Value{Type: PropertyDouble, Double: math.Float64frombits(uint64(b.Value))}, nil
	}
	return Value{}, fmt.Errorf("property type %d: %w", b.Type, ErrMalformedPayload)
}

// BoolBlock, LongBlock and DoubleBlock build inline property blocks.
func BoolBlock(key int32, v bool) PropertyBlock {
	var n int64
	if v {
		n = 1
	}
	return PropertyBlock{Key: key, Type: PropertyBool, Value: n}
}

func LongBlock(key int32, v int64) PropertyBlock {
	return PropertyBlock{Key: key, Type: PropertyLong, Value: v}
}

func DoubleBlock(key int32, v float64) PropertyBlock {
	return PropertyBlock{Key: key, Type: PropertyDouble, Value: int64(math.Float64bits(v))}
}
