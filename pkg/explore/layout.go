package explore

import (
	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
)

// sizeOf is the size in bytes of a type of the given kind. Incomplete
// pointers and arrays count as pointers; other incomplete types keep the
// negative sentinel.
func (s *session) sizeOf(kind cast.Kind, t cindex.Type) int {
	if kind == cast.KindOpaqueType {
		return 0
	}
	if kind == cast.KindArray {
		if n := t.ArraySize(); n >= 0 {
			if elem := t.Element().SizeOf(); elem >= 0 {
				return int(n * elem)
			}
		}
	}
	size := t.SizeOf()
	if size >= 0 {
		return int(size)
	}
	switch kind {
	case cast.KindPrimitive:
		return 0
	case cast.KindPointer, cast.KindArray, cast.KindFunctionPointer:
		return s.pointerSize
	}
	return int(size)
}

// alignOf is nil when the alignment is unknown.
func (s *session) alignOf(kind cast.Kind, t cindex.Type) *int {
	if kind == cast.KindOpaqueType {
		return nil
	}
	align := t.AlignOf()
	if align < 0 {
		if kind == cast.KindPointer || kind == cast.KindFunctionPointer {
			a := s.pointerSize
			return &a
		}
		return nil
	}
	a := int(align)
	return &a
}

func (s *session) pointerAlign() *int {
	a := s.pointerSize
	return &a
}

// recordFields returns the cursors laid out in a record: named fields and
// the declarations of anonymous members, in declaration order.
func recordFields(record cindex.Cursor) []cindex.Cursor {
	var fields []cindex.Cursor
	for _, c := range record.Children() {
		switch c.Kind() {
		case cindex.CursorFieldDecl:
			fields = append(fields, c)
		case cindex.CursorStructDecl, cindex.CursorUnionDecl:
			if isAnonymousMember(c) {
				fields = append(fields, c)
			}
		}
	}
	return fields
}

// fieldOffsets converts bit offsets to byte offsets. A field without a known
// offset is placed right before its successor, or at zero when it is last.
func fieldOffsets(bits []int64, sizes []int) []int {
	offsets := make([]int, len(bits))
	for i := len(bits) - 1; i >= 0; i-- {
		if bits[i] >= 0 {
			offsets[i] = int(bits[i] / 8)
			continue
		}
		if i+1 < len(bits) {
			offsets[i] = max(offsets[i+1]-sizes[i], 0)
		}
	}
	return offsets
}

// padStruct sets each field's padding to the gap between its end and the
// start of the next field, or the end of the record for the last field.
// Bitfields sharing a storage unit start inside the previous field's unit
// and so take no padding of their own. It returns the fields whose gap is
// negative; their padding is left at zero.
func padStruct(fields []cast.RecordField, recordSize int) []string {
	var overlapping []string
	for i := range fields {
		next := recordSize
		if i+1 < len(fields) {
			next = fields[i+1].OffsetOf
		}
		padding := next - (fields[i].OffsetOf + fields[i].SizeOf)
		if padding < 0 {
			overlapping = append(overlapping, fields[i].Name)
			padding = 0
		}
		fields[i].PaddingOf = padding
	}
	return overlapping
}
