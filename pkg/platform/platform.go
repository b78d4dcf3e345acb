// Package platform identifies compilation targets by their triple and
// exposes the ABI facts the front end needs for layout.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

// OperatingSystem is the OS component of a target.
type OperatingSystem string

const (
	OSUnknown     OperatingSystem = "unknown"
	OSWindows     OperatingSystem = "windows"
	OSLinux       OperatingSystem = "linux"
	OSMacOS       OperatingSystem = "macos"
	OSiOS         OperatingSystem = "ios"
	OStvOS        OperatingSystem = "tvos"
	OSFreeBSD     OperatingSystem = "freebsd"
	OSAndroid     OperatingSystem = "android"
	OSBrowser     OperatingSystem = "browser"
	OSPlayStation OperatingSystem = "playstation"
)

// Architecture is the CPU component of a target.
type Architecture string

const (
	ArchUnknown Architecture = "unknown"
	ArchX86     Architecture = "x86"
	ArchX64     Architecture = "x64"
	ArchARM32   Architecture = "arm32"
	ArchARM64   Architecture = "arm64"
	ArchWASM32  Architecture = "wasm32"
	ArchWASM64  Architecture = "wasm64"
)

// DataModel names the integer/pointer width convention of a target.
type DataModel int

const (
	ILP32 DataModel = iota // int, long, pointer are 32 bits
	LP64                   // long and pointer are 64 bits
	LLP64                  // only long long and pointer are 64 bits
)

func (m DataModel) String() string {
	switch m {
	case ILP32:
		return "ILP32"
	case LP64:
		return "LP64"
	case LLP64:
		return "LLP64"
	default:
		return "unknown"
	}
}

// TargetPlatform is a parsed target triple.
type TargetPlatform struct {
	Triple          string
	OperatingSystem OperatingSystem
	Architecture    Architecture
}

// Known target triples.
var (
	I686PcWindowsMsvc       = MustParse("i686-pc-windows-msvc")
	X8664PcWindowsMsvc      = MustParse("x86_64-pc-windows-msvc")
	Aarch64PcWindowsMsvc    = MustParse("aarch64-pc-windows-msvc")
	I686PcWindowsGnu        = MustParse("i686-pc-windows-gnu")
	X8664PcWindowsGnu       = MustParse("x86_64-pc-windows-gnu")
	I686UnknownLinuxGnu     = MustParse("i686-unknown-linux-gnu")
	X8664UnknownLinuxGnu    = MustParse("x86_64-unknown-linux-gnu")
	Aarch64UnknownLinuxGnu  = MustParse("aarch64-unknown-linux-gnu")
	I686AppleDarwin         = MustParse("i686-apple-darwin")
	X8664AppleDarwin        = MustParse("x86_64-apple-darwin")
	Aarch64AppleDarwin      = MustParse("aarch64-apple-darwin")
	Aarch64AppleIos         = MustParse("aarch64-apple-ios")
	Aarch64AppleIosSim      = MustParse("aarch64-apple-ios-sim")
	X8664AppleIos           = MustParse("x86_64-apple-ios")
	Aarch64LinuxAndroid     = MustParse("aarch64-linux-android")
	ArmLinuxAndroideabi     = MustParse("arm-linux-androideabi")
	X8664LinuxAndroid       = MustParse("x86_64-linux-android")
	Wasm32UnknownUnknown    = MustParse("wasm32-unknown-unknown")
	Wasm32UnknownEmscripten = MustParse("wasm32-unknown-emscripten")
	X8664UnknownFreebsd     = MustParse("x86_64-unknown-freebsd")
)

// Known returns every triple the tool ships defaults for.
func Known() []TargetPlatform {
	return []TargetPlatform{
		I686PcWindowsMsvc, X8664PcWindowsMsvc, Aarch64PcWindowsMsvc,
		I686PcWindowsGnu, X8664PcWindowsGnu,
		I686UnknownLinuxGnu, X8664UnknownLinuxGnu, Aarch64UnknownLinuxGnu,
		I686AppleDarwin, X8664AppleDarwin, Aarch64AppleDarwin,
		Aarch64AppleIos, Aarch64AppleIosSim, X8664AppleIos,
		Aarch64LinuxAndroid, ArmLinuxAndroideabi, X8664LinuxAndroid,
		Wasm32UnknownUnknown, Wasm32UnknownEmscripten,
		X8664UnknownFreebsd,
	}
}

// Parse parses a target triple of the form arch-vendor-os[-env].
func Parse(triple string) (TargetPlatform, error) {
	triple = strings.TrimSpace(triple)
	if strings.Count(triple, "-") < 1 {
		return TargetPlatform{}, apperrors.Newf(apperrors.CodePlatform, "malformed target triple '%s'", triple)
	}

	p := TargetPlatform{
		Triple:          triple,
		OperatingSystem: parseOperatingSystem(triple),
		Architecture:    parseArchitecture(triple),
	}
	if p.Architecture == ArchUnknown {
		return TargetPlatform{}, apperrors.Newf(apperrors.CodePlatform, "unknown architecture in target triple '%s'", triple)
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(triple string) TargetPlatform {
	p, err := Parse(triple)
	if err != nil {
		panic(err)
	}
	return p
}

func parseArchitecture(triple string) Architecture {
	arch, _, _ := strings.Cut(strings.ToLower(triple), "-")
	switch {
	case arch == "aarch64" || arch == "arm64":
		return ArchARM64
	case arch == "x86_64" || arch == "amd64":
		return ArchX64
	case arch == "i386" || arch == "i686" || arch == "x86":
		return ArchX86
	case strings.HasPrefix(arch, "arm") || strings.HasPrefix(arch, "thumb"):
		return ArchARM32
	case arch == "wasm64":
		return ArchWASM64
	case arch == "wasm32":
		return ArchWASM32
	}
	return ArchUnknown
}

func parseOperatingSystem(triple string) OperatingSystem {
	t := strings.ToLower(triple)
	switch {
	case strings.Contains(t, "-windows"):
		return OSWindows
	case strings.Contains(t, "-linux-android"):
		return OSAndroid
	case strings.Contains(t, "-linux"):
		return OSLinux
	case strings.Contains(t, "-apple-darwin") || strings.Contains(t, "-apple-macos"):
		return OSMacOS
	case strings.Contains(t, "-apple-ios"):
		return OSiOS
	case strings.Contains(t, "-apple-tvos"):
		return OStvOS
	case strings.Contains(t, "-freebsd"):
		return OSFreeBSD
	case strings.Contains(t, "-scei-ps4"):
		return OSPlayStation
	case strings.HasPrefix(t, "wasm"):
		return OSBrowser
	}
	return OSUnknown
}

// String returns the triple.
func (p TargetPlatform) String() string {
	return p.Triple
}

// IsZero reports whether p was never parsed.
func (p TargetPlatform) IsZero() bool {
	return p.Triple == ""
}

// PointerWidth returns the pointer width in bits.
func (p TargetPlatform) PointerWidth() int {
	switch p.Architecture {
	case ArchX64, ArchARM64, ArchWASM64:
		return 64
	default:
		return 32
	}
}

// DataModel returns the integer model of the target.
func (p TargetPlatform) DataModel() DataModel {
	if p.PointerWidth() == 32 {
		return ILP32
	}
	if p.OperatingSystem == OSWindows {
		return LLP64
	}
	return LP64
}

// IsMSVC reports whether the target uses the Microsoft C ABI.
func (p TargetPlatform) IsMSVC() bool {
	if p.OperatingSystem != OSWindows {
		return false
	}
	return !strings.HasSuffix(p.Triple, "-gnu")
}

// CharIsSigned reports whether plain char is signed on the target.
func (p TargetPlatform) CharIsSigned() bool {
	switch p.OperatingSystem {
	case OSWindows, OSMacOS, OSiOS, OStvOS:
		return true
	}
	switch p.Architecture {
	case ArchARM32, ArchARM64:
		return false
	}
	return true
}

// LongDouble returns the size and alignment of long double in bytes.
func (p TargetPlatform) LongDouble() (size, align int) {
	switch {
	case p.OperatingSystem == OSWindows:
		return 8, 8
	case p.Architecture == ArchX86:
		if p.OperatingSystem == OSMacOS {
			return 16, 16
		}
		return 12, 4
	case p.Architecture == ArchX64:
		return 16, 16
	case p.Architecture == ArchARM64:
		if p.OperatingSystem == OSMacOS || p.OperatingSystem == OSiOS || p.OperatingSystem == OStvOS {
			return 8, 8
		}
		return 16, 16
	case p.Architecture == ArchWASM32 || p.Architecture == ArchWASM64:
		return 16, 16
	}
	return 8, 8
}

// Int64Align returns the alignment of long long and double as record members.
func (p TargetPlatform) Int64Align() int {
	if p.Architecture == ArchX86 && p.OperatingSystem != OSWindows {
		return 4
	}
	return 8
}

// Actual returns the triple as the front end reports it after normalization.
func (p TargetPlatform) Actual() TargetPlatform {
	if p.OperatingSystem == OSWindows && strings.Count(p.Triple, "-") == 2 {
		return MustParse(p.Triple + "-msvc")
	}
	return p
}

// Predefines returns NAME=VALUE macro definitions describing the target.
func (p TargetPlatform) Predefines() []string {
	defs := []string{
		"__STDC__=1",
		"__STDC_VERSION__=201112L",
		"__STDC_HOSTED__=1",
		"__CHAR_BIT__=8",
		fmt.Sprintf("__SIZEOF_POINTER__=%d", p.PointerWidth()/8),
		"__SIZEOF_INT__=4",
		"__SIZEOF_SHORT__=2",
		"__SIZEOF_LONG_LONG__=8",
	}
	if p.DataModel() == LP64 {
		defs = append(defs, "__LP64__=1", "_LP64=1", "__SIZEOF_LONG__=8")
	} else {
		defs = append(defs, "__SIZEOF_LONG__=4", "__ILP32__=1")
	}
	if !p.CharIsSigned() {
		defs = append(defs, "__CHAR_UNSIGNED__=1")
	}

	switch p.Architecture {
	case ArchX64:
		defs = append(defs, "__x86_64__=1", "__x86_64=1", "__amd64__=1")
		if p.IsMSVC() {
			defs = append(defs, "_M_X64=100", "_M_AMD64=100")
		}
	case ArchX86:
		defs = append(defs, "__i386__=1", "__i386=1", "i386=1")
		if p.IsMSVC() {
			defs = append(defs, "_M_IX86=600")
		}
	case ArchARM64:
		defs = append(defs, "__aarch64__=1", "__arm64__=1")
		if p.IsMSVC() {
			defs = append(defs, "_M_ARM64=1")
		}
	case ArchARM32:
		defs = append(defs, "__arm__=1")
	case ArchWASM32:
		defs = append(defs, "__wasm__=1", "__wasm32__=1")
	case ArchWASM64:
		defs = append(defs, "__wasm__=1", "__wasm64__=1")
	}

	switch p.OperatingSystem {
	case OSWindows:
		defs = append(defs, "_WIN32=1")
		if p.PointerWidth() == 64 {
			defs = append(defs, "_WIN64=1")
		}
		if p.IsMSVC() {
			defs = append(defs, "_MSC_VER=1930")
		} else {
			defs = append(defs, "__MINGW32__=1", "__GNUC__=4")
			if p.PointerWidth() == 64 {
				defs = append(defs, "__MINGW64__=1")
			}
		}
	case OSLinux:
		defs = append(defs, "__linux__=1", "__linux=1", "__unix__=1", "__unix=1", "__gnu_linux__=1", "__ELF__=1", "__GNUC__=4")
	case OSAndroid:
		defs = append(defs, "__linux__=1", "__unix__=1", "__ANDROID__=1", "__ELF__=1", "__GNUC__=4")
	case OSMacOS, OSiOS, OStvOS:
		defs = append(defs, "__APPLE__=1", "__MACH__=1", "__GNUC__=4")
	case OSFreeBSD:
		defs = append(defs, "__FreeBSD__=13", "__unix__=1", "__ELF__=1", "__GNUC__=4")
	case OSBrowser:
		if strings.Contains(p.Triple, "emscripten") {
			defs = append(defs, "__EMSCRIPTEN__=1")
		}
	}
	return defs
}

// Host returns the platform of the running process.
func Host() TargetPlatform {
	arch := map[string]string{
		"amd64": "x86_64",
		"386":   "i686",
		"arm64": "aarch64",
		"arm":   "arm",
		"wasm":  "wasm32",
	}[runtime.GOARCH]
	if arch == "" {
		arch = "x86_64"
	}

	var triple string
	switch runtime.GOOS {
	case "windows":
		triple = arch + "-pc-windows-msvc"
	case "darwin":
		triple = arch + "-apple-darwin"
	case "android":
		triple = arch + "-linux-android"
	case "freebsd":
		triple = arch + "-unknown-freebsd"
	case "js", "wasip1":
		triple = "wasm32-unknown-unknown"
	default:
		triple = arch + "-unknown-linux-gnu"
	}
	return MustParse(triple)
}
