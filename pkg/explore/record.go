package explore

import (
	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
)

// exploreRecord builds a struct or union. A field whose type is blocked
// drops the whole record.
func (s *session) exploreRecord(info *infoNode, union bool) (cast.Node, error) {
	kind := cast.KindStruct
	if union {
		kind = cast.KindUnion
	}
	size := int(info.typ.SizeOf())
	record := &cast.Record{
		Kind:     kind,
		Name:     info.name,
		Location: info.location,
		SizeOf:   size,
		AlignOf:  int(info.typ.AlignOf()),
	}
	if info.cursor.IsAnonymous() && info.parent != nil {
		record.ParentName = info.parent.name
	}

	cursors := recordFields(info.cursor)
	bits := make([]int64, len(cursors))
	sizes := make([]int, len(cursors))
	fields := make([]cast.RecordField, len(cursors))
	for i, c := range cursors {
		t, err := s.VisitType(c.Type(), info, i)
		if err != nil {
			return nil, err
		}
		if t == nil {
			s.log.Debug("Record field type is blocked", "record", info.name, "field", c.Spelling())
			return nil, nil
		}
		field := cast.RecordField{
			Name:     c.Spelling(),
			Location: s.location(c, nil),
			Type:     *t,
			SizeOf:   t.SizeOf,
		}
		// A flexible array member takes no space in the record; its type
		// keeps the pointer-sized fallback.
		if c.Type().Canonical().Kind() == cindex.TypeIncompleteArray {
			field.SizeOf = 0
		}
		if width := c.BitWidth(); width >= 0 {
			w := width
			field.BitWidthOf = &w
			field.SizeOf = width / 8
		}
		if t.IsAnonymous && t.Kind.IsRecord() {
			record.NestedRecords = append(record.NestedRecords, t.Name)
		}
		bits[i] = c.FieldOffset()
		sizes[i] = field.SizeOf
		fields[i] = field
	}

	offsets := fieldOffsets(bits, sizes)
	for i := range fields {
		if union {
			fields[i].SizeOf = size
		} else {
			fields[i].OffsetOf = offsets[i]
		}
		if fields[i].BitWidthOf != nil && bits[i] >= 0 {
			b := int(bits[i]) - 8*fields[i].OffsetOf
			fields[i].BitOffsetOf = &b
		}
	}
	if !union {
		for _, name := range padStruct(fields, size) {
			s.log.Warn("Field overlaps the next field", "record", info.name, "field", name)
		}
	}
	if len(fields) > 0 {
		record.Fields = fields
	}
	return record, nil
}
