package explore

import (
	"slices"
	"testing"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{"struct point", "point"},
		{"const struct point", "point"},
		{"union value", "value"},
		{"enum color", "color"},
		{"const char *", "char*"},
		{"char *const", "char*"},
		{"struct node **", "node**"},
		{"unsigned int", "unsigned int"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{[]string{"MODE_A", "MODE_B"}, "MODE_"},
		{[]string{"FLAG_READ", "FLAG_SEEK"}, "FLAG_"},
		{[]string{"RED", "GREEN", "BLUE"}, ""},
		{[]string{"AB", "ABC"}, ""},
		{[]string{"ONLY"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := commonPrefix(tt.names); got != tt.want {
			t.Errorf("commonPrefix(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestFieldOffsets(t *testing.T) {
	tests := []struct {
		name  string
		bits  []int64
		sizes []int
		want  []int
	}{
		{"known", []int64{0, 32, 64}, []int{4, 4, 8}, []int{0, 4, 8}},
		{"bitfields share a unit", []int64{0, 3, 32}, []int{0, 0, 4}, []int{0, 0, 4}},
		{"unknown before a known field", []int64{0, -2, 64}, []int{4, 4, 4}, []int{0, 4, 8}},
		{"unknown last", []int64{0, -2}, []int{4, 4}, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fieldOffsets(tt.bits, tt.sizes); !slices.Equal(got, tt.want) {
				t.Errorf("fieldOffsets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPadStruct(t *testing.T) {
	fields := []cast.RecordField{
		{Name: "a", OffsetOf: 0, SizeOf: 1},
		{Name: "b", OffsetOf: 4, SizeOf: 4},
		{Name: "c", OffsetOf: 8, SizeOf: 2},
	}
	if overlapping := padStruct(fields, 16); len(overlapping) != 0 {
		t.Errorf("overlapping = %v", overlapping)
	}
	for i, want := range []int{3, 0, 6} {
		if fields[i].PaddingOf != want {
			t.Errorf("%s padding = %d, want %d", fields[i].Name, fields[i].PaddingOf, want)
		}
	}

	overlap := []cast.RecordField{
		{Name: "wide", OffsetOf: 0, SizeOf: 8},
		{Name: "next", OffsetOf: 4, SizeOf: 4},
	}
	if got := padStruct(overlap, 8); !slices.Equal(got, []string{"wide"}) {
		t.Errorf("overlapping = %v, want [wide]", got)
	}
	if overlap[0].PaddingOf != 0 {
		t.Errorf("overlapping field padding = %d, want 0", overlap[0].PaddingOf)
	}
}

func TestArguments(t *testing.T) {
	args := Arguments(platform.X8664UnknownLinuxGnu, ParseOptions{
		UserIncludeDirectories:   []string{"include"},
		SystemIncludeDirectories: []string{"/opt/sdk/include"},
		MacroObjectsDefines:      []string{"API_STATIC", "LEVEL=2"},
		AdditionalArguments:      []string{"-std=c11"},
	})
	want := []string{
		"--target=x86_64-unknown-linux-gnu",
		"-Iinclude",
		"-isystem", "/opt/sdk/include",
		"-DAPI_STATIC", "-DLEVEL=2",
		"-std=c11",
	}
	if !slices.Equal(args, want) {
		t.Errorf("Arguments() = %q, want %q", args, want)
	}
}

func TestIsNameAllowed(t *testing.T) {
	s := &session{opts: DefaultOptions()}
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"VERSION", true},
		{"_VERSION", false},
	} {
		if got := s.isNameAllowed(tt.name); got != tt.want {
			t.Errorf("isNameAllowed(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	s.opts.IsEnabledAllowNamesWithPrefixedUnderscore = true
	if !s.isNameAllowed("_VERSION") {
		t.Error("underscore names should be allowed")
	}
}

func TestIsHeaderBlocked(t *testing.T) {
	s := &session{opts: Options{HeaderFilesBlocked: []string{"internal.h", "sys/types.h"}}}
	tests := []struct {
		file string
		want bool
	}{
		{"internal.h", true},
		{"/src/lib/internal.h", true},
		{"/src/lib/myinternal.h", false},
		{"/usr/include/sys/types.h", true},
		{"/usr/include/types.h", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.isHeaderBlocked(tt.file); got != tt.want {
			t.Errorf("isHeaderBlocked(%q) = %v, want %v", tt.file, got, tt.want)
		}
	}
}
