package ctypes

import (
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// SizeIncomplete is reported as size and alignment of types without a
// complete definition: void, functions, forward-declared records and enums,
// and arrays of unknown bound.
const SizeIncomplete int64 = -2

// Target holds the ABI facts record layout depends on.
type Target struct {
	PointerSize     int64
	LongSize        int64
	LongDoubleSize  int64
	LongDoubleAlign int64
	Int64Align      int64
	MSBitfields     bool
}

// TargetOf derives the layout parameters of a platform.
func TargetOf(p platform.TargetPlatform) Target {
	ldSize, ldAlign := p.LongDouble()
	t := Target{
		PointerSize:     int64(p.PointerWidth() / 8),
		LongSize:        4,
		LongDoubleSize:  int64(ldSize),
		LongDoubleAlign: int64(ldAlign),
		Int64Align:      int64(p.Int64Align()),
		MSBitfields:     p.OperatingSystem == platform.OSWindows,
	}
	if p.DataModel() == platform.LP64 {
		t.LongSize = 8
	}
	return t
}

// RecordLayout is the computed layout of a complete record.
type RecordLayout struct {
	Size    int64   // bytes
	Align   int64   // bytes
	Offsets []int64 // bits, one per field
}

// Layout computes sizes, alignments and field offsets for one target.
// Record layouts are memoized.
type Layout struct {
	Target Target
	cache  map[*Record]*RecordLayout
}

// NewLayout creates a layout engine for t.
func NewLayout(t Target) *Layout {
	return &Layout{Target: t, cache: make(map[*Record]*RecordLayout)}
}

// SizeOf returns the size of t in bytes, or SizeIncomplete.
func (l *Layout) SizeOf(t Type) int64 {
	switch t := t.(type) {
	case Tvoid, Tfunction, nil:
		return SizeIncomplete
	case Tint:
		return intSize(t.Size)
	case Tlong:
		if t.LongLong {
			return 8
		}
		return l.Target.LongSize
	case Tfloat:
		size := l.floatSize(t.Size)
		if t.Complex {
			size *= 2
		}
		return size
	case Tpointer:
		return l.Target.PointerSize
	case Tarray:
		if t.Size < 0 {
			return SizeIncomplete
		}
		elem := l.SizeOf(t.Elem)
		if elem < 0 {
			return elem
		}
		return elem * t.Size
	case Tstruct:
		return l.recordSize(t.Rec)
	case Tunion:
		return l.recordSize(t.Rec)
	case Tenum:
		if t.Enum == nil || t.Enum.Underlying == nil {
			return SizeIncomplete
		}
		return l.SizeOf(t.Enum.Underlying)
	case Ttypedef:
		return l.SizeOf(t.Underlying)
	case Telaborated:
		return l.SizeOf(t.Named)
	case Tattributed:
		return l.SizeOf(t.Modified)
	case Tqualified:
		return l.SizeOf(t.Elem)
	case Tbuiltin:
		return l.SizeOf(t.Canonical)
	}
	return SizeIncomplete
}

// AlignOf returns the ABI alignment of t in bytes, or SizeIncomplete.
func (l *Layout) AlignOf(t Type) int64 {
	switch t := t.(type) {
	case Tvoid, Tfunction, nil:
		return SizeIncomplete
	case Tint:
		return intSize(t.Size)
	case Tlong:
		if t.LongLong {
			return l.Target.Int64Align
		}
		return l.Target.LongSize
	case Tfloat:
		switch t.Size {
		case F64:
			return l.Target.Int64Align
		case FLong:
			return l.Target.LongDoubleAlign
		}
		return l.floatSize(t.Size)
	case Tpointer:
		return l.Target.PointerSize
	case Tarray:
		return l.AlignOf(t.Elem)
	case Tstruct:
		return l.recordAlign(t.Rec)
	case Tunion:
		return l.recordAlign(t.Rec)
	case Tenum:
		if t.Enum == nil || t.Enum.Underlying == nil {
			return SizeIncomplete
		}
		return l.AlignOf(t.Enum.Underlying)
	case Ttypedef:
		return l.AlignOf(t.Underlying)
	case Telaborated:
		return l.AlignOf(t.Named)
	case Tattributed:
		return l.AlignOf(t.Modified)
	case Tqualified:
		return l.AlignOf(t.Elem)
	case Tbuiltin:
		return l.AlignOf(t.Canonical)
	}
	return SizeIncomplete
}

func intSize(s IntSize) int64 {
	switch s {
	case I16:
		return 2
	case I32:
		return 4
	case I128:
		return 16
	}
	return 1
}

func (l *Layout) floatSize(s FloatSize) int64 {
	switch s {
	case F16:
		return 2
	case F32:
		return 4
	case FLong:
		return l.Target.LongDoubleSize
	}
	return 8
}

func (l *Layout) recordSize(rec *Record) int64 {
	rl, ok := l.Record(rec)
	if !ok {
		return SizeIncomplete
	}
	return rl.Size
}

func (l *Layout) recordAlign(rec *Record) int64 {
	rl, ok := l.Record(rec)
	if !ok {
		return SizeIncomplete
	}
	return rl.Align
}

// FieldOffset returns the bit offset of the named field, or false when the
// record is incomplete or has no such field.
func (l *Layout) FieldOffset(rec *Record, name string) (int64, bool) {
	rl, ok := l.Record(rec)
	if !ok {
		return 0, false
	}
	for i, f := range rec.Fields {
		if f.Name == name {
			return rl.Offsets[i], true
		}
	}
	return 0, false
}

// Record lays out a complete record. It reports false for incomplete ones.
func (l *Layout) Record(rec *Record) (RecordLayout, bool) {
	if rec == nil || !rec.Complete {
		return RecordLayout{}, false
	}
	if rl, ok := l.cache[rec]; ok {
		return *rl, true
	}
	rl := l.layoutRecord(rec)
	l.cache[rec] = &rl
	return rl, true
}

func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// fieldAlign applies packed, aligned and #pragma pack to the natural
// alignment of a field's type.
func (l *Layout) fieldAlign(rec *Record, f Field) int64 {
	align := l.AlignOf(f.Type)
	if align < 1 {
		align = 1
	}
	if rec.Packed || f.Packed {
		align = 1
	}
	if f.Align > align {
		align = f.Align
	}
	if rec.MaxFieldAlign > 0 && align > rec.MaxFieldAlign {
		align = rec.MaxFieldAlign
	}
	return align
}

func (l *Layout) layoutRecord(rec *Record) RecordLayout {
	rl := RecordLayout{Align: 1, Offsets: make([]int64, len(rec.Fields))}
	var (
		offset    int64 // bits
		unitSize  int64 // bits of the open MS bitfield unit
		unitStart int64
		unitLeft  int64
	)
	for i, f := range rec.Fields {
		align := l.fieldAlign(rec, f)
		size := l.SizeOf(f.Type)
		if size < 0 {
			// flexible array member
			size = 0
		}
		if rec.Union {
			rl.Offsets[i] = 0
			bits := size * 8
			if f.IsBitfield() {
				bits = f.BitWidth
			}
			offset = max(offset, bits)
			if !f.IsBitfield() || f.Name != "" {
				rl.Align = max(rl.Align, align)
			}
			continue
		}

		if !f.IsBitfield() {
			unitSize = 0
			offset = roundUp(offset, align*8)
			rl.Offsets[i] = offset
			offset += size * 8
			rl.Align = max(rl.Align, align)
			continue
		}

		storage := size * 8
		if l.Target.MSBitfields {
			if f.BitWidth == 0 {
				unitSize = 0
				rl.Offsets[i] = offset
				continue
			}
			if unitSize == storage && unitLeft >= f.BitWidth {
				rl.Offsets[i] = unitStart + unitSize - unitLeft
				unitLeft -= f.BitWidth
			} else {
				offset = roundUp(offset, align*8)
				unitStart, unitSize = offset, storage
				unitLeft = storage - f.BitWidth
				rl.Offsets[i] = offset
				offset += storage
			}
			rl.Align = max(rl.Align, align)
			continue
		}

		if f.BitWidth == 0 {
			offset = roundUp(offset, l.AlignOf(f.Type)*8)
			rl.Offsets[i] = offset
			continue
		}
		switch {
		case rec.Packed || f.Packed || storage == 0:
		case rec.MaxFieldAlign > 0:
			unit := align * 8
			if offset/unit != (offset+f.BitWidth-1)/unit && offset%storage+f.BitWidth > storage {
				offset = roundUp(offset, unit)
			}
		case offset%storage+f.BitWidth > storage:
			offset = roundUp(offset, align*8)
		}
		rl.Offsets[i] = offset
		offset += f.BitWidth
		if f.Name != "" {
			rl.Align = max(rl.Align, align)
		}
	}
	if rec.Align > rl.Align {
		rl.Align = rec.Align
	}
	rl.Size = roundUp((offset+7)/8, rl.Align)
	return rl
}
