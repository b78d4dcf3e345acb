package cast

import (
	"cmp"
	"encoding/json"
	"fmt"
)

// Location is a position in a header. The zero value is NoLocation and is
// serialized as null.
type Location struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// NoLocation is used for nodes that have no position of their own:
// primitives, pointers, arrays and function prototypes.
var NoLocation = Location{}

func (l Location) IsNull() bool {
	return l == NoLocation
}

func (l Location) String() string {
	if l.IsNull() {
		return ""
	}
	if l.Line == 0 {
		return l.FileName
	}
	return fmt.Sprintf("%s:%d:%d", l.FileName, l.Line, l.Column)
}

// Compare orders locations by file name, then line, then column.
func (l Location) Compare(o Location) int {
	if c := cmp.Compare(l.FileName, o.FileName); c != 0 {
		return c
	}
	if c := cmp.Compare(l.Line, o.Line); c != 0 {
		return c
	}
	return cmp.Compare(l.Column, o.Column)
}

// locationJSON has the fields of Location without its methods.
type locationJSON Location

func (l Location) MarshalJSON() ([]byte, error) {
	if l.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(locationJSON(l))
}

func (l *Location) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = NoLocation
		return nil
	}
	var v locationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Location(v)
	return nil
}
