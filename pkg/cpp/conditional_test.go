package cpp

import (
	"strings"
	"testing"
)

func newConditional(defines map[string]string) *ConditionalProcessor {
	mt := NewMacroTable()
	for name, value := range defines {
		_ = mt.DefineSimple(name, value, SourceLoc{File: "config.h", Line: 1})
	}
	return NewConditionalProcessor(mt)
}

func TestConditionalIncludeGuard(t *testing.T) {
	cp := newConditional(nil)
	if err := cp.ProcessIfndef("API_H"); err != nil {
		t.Fatal(err)
	}
	if !cp.IsActive() {
		t.Fatal("first inclusion should be kept")
	}
	if err := cp.macros.DefineSimple("API_H", "", SourceLoc{File: "api.h", Line: 2}); err != nil {
		t.Fatal(err)
	}
	if err := cp.ProcessEndif(); err != nil {
		t.Fatal(err)
	}

	if err := cp.ProcessIfndef("API_H"); err != nil {
		t.Fatal(err)
	}
	if cp.IsActive() {
		t.Error("second inclusion should be skipped")
	}
	if err := cp.ProcessIfdef("API_H"); err != nil {
		t.Fatal(err)
	}
	if cp.IsActive() || cp.Depth() != 2 {
		t.Errorf("nested #ifdef in a skipped group: active=%v depth=%d", cp.IsActive(), cp.Depth())
	}
}

func TestConditionalIf(t *testing.T) {
	tests := []struct {
		name    string
		defines map[string]string
		expr    string
		expect  bool
	}{
		{"literal true", nil, "1", true},
		{"literal false", nil, "0", false},
		{"undefined names are zero", nil, "API_VERSION", false},
		{"version check", map[string]string{"__GNUC__": "4"}, "__GNUC__ >= 4", true},
		{"platform selection", map[string]string{"_WIN32": "1"}, "defined(_WIN32) && !defined(API_STATIC)", true},
		{"static build", map[string]string{"_WIN32": "1", "API_STATIC": ""}, "defined _WIN32 && !defined API_STATIC", false},
		{"composite version", map[string]string{"API_MAJOR": "2", "API_MINOR": "7"}, "API_MAJOR * 100 + API_MINOR >= 207", true},
		{"function-like macro", map[string]string{"VER(a, b)": "((a) << 8 | (b))"}, "VER(1, 2) == 0x102", true},
		{"true keyword", nil, "true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := NewMacroTable()
			var defines []string
			for name, value := range tt.defines {
				defines = append(defines, name+"="+value)
			}
			mt.ApplyCmdlineDefines(defines, nil)
			cp := NewConditionalProcessor(mt)
			if err := cp.ProcessIf(tokenize(tt.expr)); err != nil {
				t.Fatalf("ProcessIf(%q) error: %v", tt.expr, err)
			}
			if cp.IsActive() != tt.expect {
				t.Errorf("IsActive() = %v, want %v", cp.IsActive(), tt.expect)
			}
		})
	}
}

func TestConditionalBranches(t *testing.T) {
	// #if A / #elif B / #else / #endif with the group expected to be kept.
	tests := []struct {
		name    string
		defines map[string]string
		want    string
	}{
		{"first", map[string]string{"A": "1"}, "if"},
		{"second", map[string]string{"B": "1"}, "elif"},
		{"both", map[string]string{"A": "1", "B": "1"}, "if"},
		{"neither", nil, "else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := newConditional(tt.defines)
			kept := map[string]bool{}
			if err := cp.ProcessIf(tokenize("A")); err != nil {
				t.Fatal(err)
			}
			kept["if"] = cp.IsActive()
			if err := cp.ProcessElif(tokenize("B")); err != nil {
				t.Fatal(err)
			}
			kept["elif"] = cp.IsActive()
			if err := cp.ProcessElse(); err != nil {
				t.Fatal(err)
			}
			kept["else"] = cp.IsActive()
			if err := cp.ProcessEndif(); err != nil {
				t.Fatal(err)
			}
			for group, active := range kept {
				if active != (group == tt.want) {
					t.Errorf("group %s active = %v", group, active)
				}
			}
		})
	}
}

func TestConditionalElifNotEvaluatedAfterTakenGroup(t *testing.T) {
	cp := newConditional(nil)
	if err := cp.ProcessIf(tokenize("1")); err != nil {
		t.Fatal(err)
	}
	if err := cp.ProcessElif(tokenize("1 / 0")); err != nil {
		t.Errorf("#elif after a kept group must not be evaluated: %v", err)
	}
	if cp.IsActive() {
		t.Error("#elif after a kept group should be skipped")
	}
}

func TestConditionalSkippedGroupIgnoresConditions(t *testing.T) {
	cp := newConditional(nil)
	if err := cp.ProcessIf(tokenize("0")); err != nil {
		t.Fatal(err)
	}
	if err := cp.ProcessIf(tokenize("(")); err != nil {
		t.Errorf("#if inside a skipped group must not be evaluated: %v", err)
	}
	if err := cp.ProcessElse(); err != nil {
		t.Fatal(err)
	}
	if cp.IsActive() {
		t.Error("#else inside a skipped group should stay skipped")
	}
	_ = cp.ProcessEndif()
	if err := cp.ProcessElse(); err != nil {
		t.Fatal(err)
	}
	if !cp.IsActive() {
		t.Error("outer #else should be kept")
	}
}

func TestConditionalErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(cp *ConditionalProcessor) error
		want string
	}{
		{"endif without if", func(cp *ConditionalProcessor) error { return cp.ProcessEndif() }, "#endif without #if"},
		{"else without if", func(cp *ConditionalProcessor) error { return cp.ProcessElse() }, "#else without #if"},
		{"elif without if", func(cp *ConditionalProcessor) error { return cp.ProcessElif(tokenize("1")) }, "#elif without #if"},
		{"elif after else", func(cp *ConditionalProcessor) error {
			_ = cp.ProcessIf(tokenize("0"))
			_ = cp.ProcessElse()
			return cp.ProcessElif(tokenize("1"))
		}, "#elif after #else"},
		{"two elses", func(cp *ConditionalProcessor) error {
			_ = cp.ProcessIfdef("X")
			_ = cp.ProcessElse()
			return cp.ProcessElse()
		}, "#else after #else"},
		{"bad expression", func(cp *ConditionalProcessor) error { return cp.ProcessIf(tokenize("1 +")) }, "#if:"},
		{"defined without name", func(cp *ConditionalProcessor) error { return cp.ProcessIf(tokenize("defined(")) }, "requires an identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newConditional(nil))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestIfExpressionValues(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"0x2A", "42"},
		{"052", "42"},
		{"0b101", "5"},
		{"-5 / 2", "-2"},
		{"-5 % 2", "-1"},
		{"~0", "-1"},
		{"~0U", "18446744073709551615U"},
		{"1 << 4 | 1", "17"},
		{"-16 >> 2", "-4"},
		{"1 << 64", "0"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"1 ? 2 : 3U", "2U"},
		{"0 ? 2 : 3", "3"},
		{"'a'", "97"},
		{"'\\n'", "10"},
		{"'\\x7f'", "127"},
		{"'\\0'", "0"},
		{"L'A'", "65"},
		{"18446744073709551615", "18446744073709551615U"},
		{"5 > 3 == 1", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := evalIfExpr(tokenize(tt.expr))
			if err != nil {
				t.Fatalf("evalIfExpr(%q) error: %v", tt.expr, err)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("evalIfExpr(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestIfExpressionUnsignedLimits(t *testing.T) {
	// limits.h style checks used to pick integer widths.
	tests := []struct {
		name    string
		defines map[string]string
		expr    string
		expect  bool
	}{
		{"64-bit ulong", map[string]string{"ULONG_MAX": "0xffffffffffffffffUL"}, "ULONG_MAX > 0xffffffffUL", true},
		{"32-bit ulong", map[string]string{"ULONG_MAX": "0xffffffffUL"}, "ULONG_MAX > 0xffffffffUL", false},
		{"decimal size max", map[string]string{"SIZE_MAX": "18446744073709551615UL"}, "SIZE_MAX == 0xFFFFFFFFFFFFFFFF", true},
		{"negative against unsigned", nil, "-1 < 0U", false},
		{"negative against signed", nil, "-1 < 0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := newConditional(tt.defines).evaluateCondition(tokenize(tt.expr))
			if err != nil {
				t.Fatalf("evaluateCondition(%q) error: %v", tt.expr, err)
			}
			if ok != tt.expect {
				t.Errorf("evaluateCondition(%q) = %v, want %v", tt.expr, ok, tt.expect)
			}
		})
	}
}

func TestIfExpressionShortCircuit(t *testing.T) {
	for _, expr := range []string{"0 && 1 / 0", "1 || 1 % 0", "1 ? 1 : 1 / 0", "0 ? 1 / 0 : 1"} {
		ok, err := newConditional(nil).evaluateCondition(tokenize(expr))
		if err != nil {
			t.Errorf("%q: %v", expr, err)
			continue
		}
		if ok != (expr != "0 && 1 / 0") {
			t.Errorf("%q = %v", expr, ok)
		}
	}
	if _, err := newConditional(nil).evaluateCondition(tokenize("1 && 1 / 0")); err == nil {
		t.Error("an evaluated division by zero must fail")
	}
}

func TestIfExpressionErrors(t *testing.T) {
	for _, expr := range []string{"", "1 +", "(1", "1 2", "1.5 > 1", "1 ? 2", "\"str\""} {
		if _, err := evalIfExpr(tokenize(expr)); err == nil {
			t.Errorf("evalIfExpr(%q) should fail", expr)
		}
	}
}

func TestFeatureQueries(t *testing.T) {
	tests := []struct {
		expr   string
		expect bool
	}{
		{"__has_include(<present.h>)", true},
		{"__has_include(\"missing.h\")", false},
		{"__has_include_next(<present.h>)", false},
		{"__has_include(PRESENT_HEADER)", true},
		{"__has_attribute(visibility)", true},
		{"__has_attribute(__aligned__)", true},
		{"__has_attribute(objc_boxable)", false},
		{"__has_builtin(__builtin_expect)", false},
		{"__has_feature(modules) || 1", true},
		{"defined(__has_include) || __has_include(<present.h>)", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cp := newConditional(map[string]string{"PRESENT_HEADER": "<present.h>"})
			cp.HasInclude = func(name string, next bool) bool {
				return name == "<present.h>" && !next
			}
			result, err := cp.evaluateCondition(tokenize(tt.expr))
			if err != nil {
				t.Fatalf("evaluateCondition error: %v", err)
			}
			if result != tt.expect {
				t.Errorf("result = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestFeatureQueryWithoutResolver(t *testing.T) {
	cp := newConditional(nil)
	result, err := cp.evaluateCondition(tokenize("__has_include(<stdio.h>)"))
	if err != nil {
		t.Fatalf("evaluateCondition error: %v", err)
	}
	if result {
		t.Error("__has_include without a resolver should be 0")
	}
	if _, err := cp.evaluateCondition(tokenize("__has_include(<stdio.h>")); err == nil {
		t.Error("expected error for unbalanced __has_include")
	}
}
