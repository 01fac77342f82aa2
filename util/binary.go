package util

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"reflect"
)

type Datatype int

const (
	DatatypeUint16 Datatype = iota
	DatatypeUint32
	DatatypeInt32
)

// Size returns the number of bytes a value of this type takes up in the index file.
func (d Datatype) Size() int {
	switch d {
	case DatatypeUint16:
		return 2
	case DatatypeUint32, DatatypeInt32:
		return 4
	}
	return 0
}

type BinaryItem interface {
	Write(object any, data []byte, index int) (int, error)
	Read(object any, data []byte, index int) (int, error)
	Size(object any) int
}

// BinarySchema describes a fixed-width little-endian layout of a struct. Items are written and read in the given
// order without any padding or length prefixes.
type BinarySchema struct {
	Items []BinaryItem
}

func (b *BinarySchema) Write(object any, data []byte, index int) (int, error) {
	var err error

	for _, item := range b.Items {
		index, err = item.Write(object, data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func (b *BinarySchema) Read(object any, data []byte, index int) (int, error) {
	var err error

	for _, item := range b.Items {
		index, err = item.Read(object, data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

// Size returns the number of bytes the given object takes up when written with this schema.
func (b *BinarySchema) Size(object any) int {
	size := 0
	for _, item := range b.Items {
		size += item.Size(object)
	}
	return size
}

type BinaryDataItem struct {
	FieldName  string   // Name of the golang struct field.
	BinaryType Datatype // Type this field should be stored to. This has to be compatible with the FieldType.
}

func (b *BinaryDataItem) Write(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if !field.IsValid() {
		return -1, errors.Errorf("Field %s does not exist on object of type %T", b.FieldName, object)
	}
	return writeBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

func (b *BinaryDataItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if !field.IsValid() || !field.CanSet() {
		return -1, errors.Errorf("Field %s does not exist or is not settable on object of type %T", b.FieldName, object)
	}
	return readBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

func (b *BinaryDataItem) Size(object any) int {
	return b.BinaryType.Size()
}

// BinaryArrayItem represents a slice of plain values stored back to back. In contrast to a length prefixed
// collection, the number of elements is known from somewhere else (e.g. a header field). When reading, the slice
// must therefore already have the expected length.
type BinaryArrayItem struct {
	FieldName  string   // Name of the golang struct slice.
	BinaryType Datatype // Type each element should be stored to.
}

func (b *BinaryArrayItem) Write(object any, data []byte, index int) (int, error) {
	slice := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return -1, errors.Errorf("Unsupported type given to BinaryArrayItem (type=%v, index=%d, field=%s). Only slices and array are supported.", slice.Kind(), index, b.FieldName)
	}

	var err error
	for i := 0; i < slice.Len(); i++ {
		index, err = writeBinaryValue(b.BinaryType, b.FieldName, slice.Index(i), data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func (b *BinaryArrayItem) Read(object any, data []byte, index int) (int, error) {
	slice := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return -1, errors.Errorf("Unsupported type given to BinaryArrayItem (type=%v, index=%d, field=%s). Only slices and array are supported.", slice.Kind(), index, b.FieldName)
	}

	var err error
	for i := 0; i < slice.Len(); i++ {
		index, err = readBinaryValue(b.BinaryType, b.FieldName, slice.Index(i), data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func (b *BinaryArrayItem) Size(object any) int {
	slice := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return slice.Len() * b.BinaryType.Size()
}

func writeBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	if index < 0 || index+binaryType.Size() > len(data) {
		return -1, errors.Errorf("Field %s does not fit into buffer of size %d at index %d", fieldName, len(data), index)
	}

	switch binaryType {
	case DatatypeUint16:
		binary.LittleEndian.PutUint16(data[index:], uint16(getUint64FromValue(value)))
	case DatatypeUint32:
		binary.LittleEndian.PutUint32(data[index:], uint32(getUint64FromValue(value)))
	case DatatypeInt32:
		binary.LittleEndian.PutUint32(data[index:], uint32(int32(getUint64FromValue(value))))
	default:
		return -1, errors.Errorf("Unsupported datatype %d for field %s", binaryType, fieldName)
	}

	return index + binaryType.Size(), nil
}

func readBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	if index < 0 || index+binaryType.Size() > len(data) {
		return -1, errors.Errorf("Field %s cannot be read from buffer of size %d at index %d", fieldName, len(data), index)
	}

	var raw int64
	switch binaryType {
	case DatatypeUint16:
		raw = int64(binary.LittleEndian.Uint16(data[index:]))
	case DatatypeUint32:
		raw = int64(binary.LittleEndian.Uint32(data[index:]))
	case DatatypeInt32:
		raw = int64(int32(binary.LittleEndian.Uint32(data[index:])))
	default:
		return -1, errors.Errorf("Unsupported datatype %d for field %s", binaryType, fieldName)
	}

	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value.SetInt(raw)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value.SetUint(uint64(raw))
	default:
		return -1, errors.Errorf("Unsupported field kind %s of field %s", value.Kind(), fieldName)
	}

	return index + binaryType.Size(), nil
}

func getUint64FromValue(value reflect.Value) uint64 {
	if value.Kind() == reflect.Int ||
		value.Kind() == reflect.Int8 ||
		value.Kind() == reflect.Int16 ||
		value.Kind() == reflect.Int32 ||
		value.Kind() == reflect.Int64 {
		return uint64(value.Int())
	} else if value.Kind() == reflect.Uint ||
		value.Kind() == reflect.Uint8 ||
		value.Kind() == reflect.Uint16 ||
		value.Kind() == reflect.Uint32 ||
		value.Kind() == reflect.Uint64 {
		return value.Uint()
	}
	panic("Unsupported value type " + value.Kind().String() + " to convert to uint.")
}
