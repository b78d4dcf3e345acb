package explore

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// Options select which declarations end up in the document.
type Options struct {
	// HeaderFilesBlocked are file names or path suffixes whose declarations
	// are never emitted.
	HeaderFilesBlocked []string `yaml:"header_files_blocked"`
	// OpaqueTypeNames are records or aliases emitted as opaque types
	// regardless of their layout.
	OpaqueTypeNames []string `yaml:"opaque_type_names"`
	// FunctionNamesAllowed restricts functions to the listed names. Empty
	// allows every function.
	FunctionNamesAllowed []string `yaml:"function_names_allowed"`
	// EnumConstantNamesAllowed restricts promoted enum constants. Empty
	// allows every constant.
	EnumConstantNamesAllowed []string `yaml:"enum_constant_names_allowed"`

	IsEnabledLocationFullPaths                bool `yaml:"is_enabled_location_full_paths"`
	IsEnabledMacroObjects                     bool `yaml:"is_enabled_macro_objects"`
	IsEnabledFunctions                        bool `yaml:"is_enabled_functions"`
	IsEnabledVariables                        bool `yaml:"is_enabled_variables"`
	IsEnabledEnumConstants                    bool `yaml:"is_enabled_enum_constants"`
	IsEnabledEnumsDangling                    bool `yaml:"is_enabled_enums_dangling"`
	IsEnabledAllowNamesWithPrefixedUnderscore bool `yaml:"is_enabled_allow_names_with_prefixed_underscore"`
	IsEnabledSystemDeclarations               bool `yaml:"is_enabled_system_declarations"`
}

// DefaultOptions emits everything declared outside system headers.
func DefaultOptions() Options {
	return Options{
		IsEnabledMacroObjects:  true,
		IsEnabledFunctions:     true,
		IsEnabledVariables:     true,
		IsEnabledEnumConstants: true,
		IsEnabledEnumsDangling: true,
	}
}

// LinkedPath rewrites locations under From to To.
type LinkedPath struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ParseOptions control how headers are handed to the front end.
type ParseOptions struct {
	UserIncludeDirectories   []string     `yaml:"user_include_directories"`
	SystemIncludeDirectories []string     `yaml:"system_include_directories"`
	MacroObjectsDefines      []string     `yaml:"defines"`
	AdditionalArguments      []string     `yaml:"additional_arguments"`
	Frameworks               []string     `yaml:"frameworks"`
	LinkedPaths              []LinkedPath `yaml:"linked_paths"`

	IsEnabledFindSystemHeaders bool `yaml:"is_enabled_find_system_headers"`
	IsEnabledSingleHeader      bool `yaml:"is_enabled_single_header"`
}

// Arguments builds the compiler-style argument list for one target.
func Arguments(target platform.TargetPlatform, opts ParseOptions) []string {
	args := []string{"--target=" + target.Triple}
	for _, dir := range opts.UserIncludeDirectories {
		args = append(args, "-I"+dir)
	}
	system := opts.SystemIncludeDirectories
	if opts.IsEnabledFindSystemHeaders {
		system = append(append([]string(nil), system...), FindSystemHeaders(target)...)
	}
	for _, dir := range system {
		args = append(args, "-isystem", dir)
	}
	for _, def := range opts.MacroObjectsDefines {
		args = append(args, "-D"+def)
	}
	return append(args, opts.AdditionalArguments...)
}

// FindSystemHeaders returns the host's C header directories that exist on
// disk. Only a host matching the target's operating system has any.
func FindSystemHeaders(target platform.TargetPlatform) []string {
	var candidates []string
	switch {
	case target.OperatingSystem == platform.OSLinux && runtime.GOOS == "linux":
		candidates = []string{"/usr/local/include", "/usr/include/" + multiarch(target), "/usr/include"}
	case target.OperatingSystem == platform.OSMacOS && runtime.GOOS == "darwin":
		candidates = []string{
			"/Library/Developer/CommandLineTools/SDKs/MacOSX.sdk/usr/include",
			"/usr/local/include",
		}
	case target.OperatingSystem == platform.OSFreeBSD && runtime.GOOS == "freebsd":
		candidates = []string{"/usr/local/include", "/usr/include"}
	}
	var dirs []string
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, filepath.Clean(dir))
		}
	}
	return dirs
}

func multiarch(target platform.TargetPlatform) string {
	switch target.Architecture {
	case platform.ArchX64:
		return "x86_64-linux-gnu"
	case platform.ArchARM64:
		return "aarch64-linux-gnu"
	case platform.ArchX86:
		return "i386-linux-gnu"
	case platform.ArchARM32:
		return "arm-linux-gnueabihf"
	}
	return "unknown-linux-gnu"
}
