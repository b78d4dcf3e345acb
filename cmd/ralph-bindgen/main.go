package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/ralph-bindgen/pkg/cabs"
	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/config"
	"github.com/raymyers/ralph-bindgen/pkg/explore"
	"github.com/raymyers/ralph-bindgen/pkg/extract"
	"github.com/raymyers/ralph-bindgen/pkg/parser"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
	"github.com/raymyers/ralph-bindgen/pkg/preproc"
)

var version = "0.1.0"

// errReported means the failure has already been written to stderr.
var errReported = errors.New("failed")

// options holds the command line. Each root command gets its own.
type options struct {
	configPath string
	output     string
	platforms  []string

	includePaths []string
	systemPaths  []string
	defines      []string

	singleHeader       bool
	systemDeclarations bool
	fullPaths          bool
	noMacros           bool
	noFunctions        bool
	noVariables        bool
	allowFunctions     []string
	opaqueTypes        []string
	blockedHeaders     []string
	linkPaths          map[string]string

	logLevel    string
	logFormat   string
	concurrency int

	// Debug dumps
	preprocessOnly bool
	dParse         bool
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that also accept a single dash.
var debugFlagNames = []string{"dparse"}

// normalizeFlags converts single-dash debug flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "ralph-bindgen [header]",
		Short: "ralph-bindgen extracts the C API of a header for binding generators",
		Long: `ralph-bindgen parses a C header for one or more target platforms and
writes what it exports (functions, records, enums, aliases, macros)
as one JSON document per platform, with sizes, offsets and padding
resolved for that target.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.configPath == "" {
				return cmd.Help()
			}
			err := execute(cmd, opts, args, out, errOut)
			if err != nil && !errors.Is(err, errReported) {
				fmt.Fprintf(errOut, "ralph-bindgen: %v\n", err)
			}
			return err
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	fs := rootCmd.Flags()
	fs.StringVarP(&opts.configPath, "config", "c", "", "Read settings from a YAML file")
	fs.StringVarP(&opts.output, "output", "o", "", "Write <triple>.json documents to this directory")
	fs.StringArrayVar(&opts.platforms, "platform", nil, "Target triple to explore (repeatable); one of "+knownTriples())
	addParseFlags(fs, opts)
	addExploreFlags(fs, opts)
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	fs.IntVar(&opts.concurrency, "concurrency", 0, "Platforms explored at once")

	fs.BoolVarP(&opts.preprocessOnly, "preprocess", "E", false, "Preprocess only, output to stdout")
	fs.BoolVar(&opts.dParse, "dparse", false, "Dump the parsed declarations")

	return rootCmd
}

func addParseFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringArrayVarP(&opts.includePaths, "include", "I", nil, "Add directory to include search path")
	fs.StringArrayVar(&opts.systemPaths, "isystem", nil, "Add directory to system include search path")
	fs.StringArrayVarP(&opts.defines, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	fs.BoolVar(&opts.singleHeader, "single-header", false, "Do not explore included headers on their own")
	fs.StringToStringVar(&opts.linkPaths, "link-path", nil, "Rewrite locations under FROM to TO (FROM=TO)")
}

func addExploreFlags(fs *pflag.FlagSet, opts *options) {
	fs.BoolVar(&opts.systemDeclarations, "system-declarations", false, "Include declarations from system headers")
	fs.BoolVar(&opts.fullPaths, "full-paths", false, "Keep absolute paths in locations")
	fs.BoolVar(&opts.noMacros, "no-macros", false, "Skip macro objects")
	fs.BoolVar(&opts.noFunctions, "no-functions", false, "Skip functions")
	fs.BoolVar(&opts.noVariables, "no-variables", false, "Skip variables")
	fs.StringArrayVar(&opts.allowFunctions, "allow-function", nil, "Only emit the named functions (repeatable)")
	fs.StringArrayVar(&opts.opaqueTypes, "opaque", nil, "Emit the named type as opaque (repeatable)")
	fs.StringArrayVar(&opts.blockedHeaders, "block-header", nil, "Never emit declarations from this header (repeatable)")
}

// loadConfig reads the configuration file, if any, and applies the command
// line on top of it.
func loadConfig(fs *pflag.FlagSet, opts *options, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		cfg.InputFilePath = abs
	}
	if opts.output != "" {
		cfg.OutputDirectory = opts.output
	}
	if len(opts.platforms) > 0 {
		platforms := make(map[string]config.PlatformConfig, len(opts.platforms))
		for _, triple := range opts.platforms {
			platforms[triple] = cfg.Platforms[triple]
		}
		cfg.Platforms = platforms
	}
	for triple, pc := range cfg.Platforms {
		pc.UserIncludeDirectories = append(pc.UserIncludeDirectories, opts.includePaths...)
		pc.SystemIncludeDirectories = append(pc.SystemIncludeDirectories, opts.systemPaths...)
		pc.Defines = append(pc.Defines, opts.defines...)
		cfg.Platforms[triple] = pc
	}

	if fs.Changed("single-header") {
		cfg.IsEnabledSingleHeader = opts.singleHeader
	}
	if fs.Changed("system-declarations") {
		cfg.Explore.IsEnabledSystemDeclarations = opts.systemDeclarations
	}
	if fs.Changed("full-paths") {
		cfg.Explore.IsEnabledLocationFullPaths = opts.fullPaths
	}
	if opts.noMacros {
		cfg.Explore.IsEnabledMacroObjects = false
	}
	if opts.noFunctions {
		cfg.Explore.IsEnabledFunctions = false
	}
	if opts.noVariables {
		cfg.Explore.IsEnabledVariables = false
	}
	cfg.Explore.FunctionNamesAllowed = append(cfg.Explore.FunctionNamesAllowed, opts.allowFunctions...)
	cfg.Explore.OpaqueTypeNames = append(cfg.Explore.OpaqueTypeNames, opts.opaqueTypes...)
	cfg.Explore.HeaderFilesBlocked = append(cfg.Explore.HeaderFilesBlocked, opts.blockedHeaders...)

	froms := make([]string, 0, len(opts.linkPaths))
	for from := range opts.linkPaths {
		froms = append(froms, from)
	}
	slices.Sort(froms)
	for _, from := range froms {
		cfg.LinkedPaths = append(cfg.LinkedPaths, explore.LinkedPath{From: from, To: opts.linkPaths[from]})
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InputFilePath == "" {
		return nil, errors.New("no input header")
	}
	return cfg, nil
}

func execute(cmd *cobra.Command, opts *options, args []string, out, errOut io.Writer) error {
	cfg, err := loadConfig(cmd.Flags(), opts, args)
	if err != nil {
		return err
	}

	switch {
	case opts.preprocessOnly:
		return doPreprocessOnly(cmd.Context(), cfg, out)
	case opts.dParse:
		return doParse(cmd.Context(), cfg, out, errOut)
	}

	if cfg.OutputDirectory == "" && len(cfg.Platforms) > 1 {
		return errors.New("--output is required when exploring more than one platform")
	}

	runner := &extract.Runner{Log: cfg.Logger(errOut)}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := runner.Run(ctx, cfg)
	if results == nil {
		return err
	}

	failed := false
	for _, res := range results {
		if res.Err != nil {
			failed = true
			fmt.Fprintf(errOut, "ralph-bindgen: %s: %v\n", res.Platform.Triple, res.Err)
			continue
		}
		if cfg.OutputDirectory == "" {
			data, err := cast.Marshal(res.Document)
			if err != nil {
				return err
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
		}
	}
	if failed {
		return errReported
	}
	return err
}

// firstTarget returns the platform the debug dumps run for.
func firstTarget(cfg *config.Config) (platform.TargetPlatform, config.PlatformConfig, error) {
	targets, err := cfg.Targets()
	if err != nil {
		return platform.TargetPlatform{}, config.PlatformConfig{}, err
	}
	return targets[0], cfg.Platforms[targets[0].Triple], nil
}

func preprocess(ctx context.Context, cfg *config.Config, lineMarkers bool) (*preproc.Result, error) {
	target, pc, err := firstTarget(cfg)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return preproc.Preprocess(ctx, cfg.InputFilePath, &preproc.Options{
		IncludePaths: pc.UserIncludeDirectories,
		SystemPaths:  pc.SystemIncludeDirectories,
		Predefines:   target.Predefines(),
		Defines:      pc.Defines,
		LineMarkers:  lineMarkers,
	})
}

// doPreprocessOnly preprocesses and outputs to stdout (-E flag)
func doPreprocessOnly(ctx context.Context, cfg *config.Config, out io.Writer) error {
	res, err := preprocess(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("preprocessing error: %w", err)
	}
	fmt.Fprint(out, res.Text)
	return nil
}

// doParse parses the header and prints its declarations back as C
func doParse(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	res, err := preprocess(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("preprocessing error: %w", err)
	}
	program, errs := parser.Parse(res.Text, cfg.InputFilePath, false)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(errOut, "%s: %s\n", e.File, e)
		}
		return fmt.Errorf("%w: parsing failed with %d errors", errReported, len(errs))
	}
	cabs.Print(out, program)
	return nil
}

func knownTriples() string {
	var triples []string
	for _, p := range platform.Known() {
		triples = append(triples, p.Triple)
	}
	return strings.Join(triples, ", ")
}
