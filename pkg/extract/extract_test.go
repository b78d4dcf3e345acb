package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cfront"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/config"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// failingParser rejects every header.
type failingParser struct{}

func (failingParser) Parse(_ context.Context, file string, _ []string) (cindex.TranslationUnit, error) {
	return nil, apperrors.ParseError(file, errors.New("no front end"))
}

func newConfig(t *testing.T, triples ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "api.h")
	if err := os.WriteFile(input, []byte("struct pair { long a; int b; };\nvoid *pair_data(struct pair *p);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.InputFilePath = input
	cfg.OutputDirectory = filepath.Join(dir, "out")
	cfg.Platforms = map[string]config.PlatformConfig{}
	for _, triple := range triples {
		cfg.Platforms[triple] = config.PlatformConfig{}
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRun(t *testing.T) {
	cfg := newConfig(t, "x86_64-unknown-linux-gnu", "i686-unknown-linux-gnu", "x86_64-pc-windows-msvc")
	results, err := (&Runner{}).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	sizes := map[string]int{
		"i686-unknown-linux-gnu":   8,
		"x86_64-pc-windows-msvc":   8,
		"x86_64-unknown-linux-gnu": 16,
	}
	for i, res := range results {
		if i > 0 && results[i-1].Platform.Triple > res.Platform.Triple {
			t.Errorf("results are not ordered by triple")
		}
		if res.Err != nil {
			t.Errorf("%s: %v", res.Platform, res.Err)
			continue
		}
		want := filepath.Join(cfg.OutputDirectory, res.Platform.Triple+".json")
		if res.Path != want {
			t.Errorf("%s written to %s, want %s", res.Platform, res.Path, want)
		}
		data, err := os.ReadFile(res.Path)
		if err != nil {
			t.Fatal(err)
		}
		doc, err := cast.Unmarshal(data)
		if err != nil {
			t.Fatalf("%s: %v", res.Path, err)
		}
		if doc.PlatformRequested != res.Platform.Triple {
			t.Errorf("platform_requested = %q, want %q", doc.PlatformRequested, res.Platform.Triple)
		}
		if got := doc.Records["pair"].SizeOf; got != sizes[res.Platform.Triple] {
			t.Errorf("%s: pair size = %d, want %d", res.Platform, got, sizes[res.Platform.Triple])
		}
		if !cast.Equal(doc, res.Document) {
			t.Errorf("%s: written document differs from the result", res.Platform)
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	cfg := newConfig(t, "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-gnu")
	cfg.Concurrency = 1
	runner := &Runner{NewParser: func(p platform.TargetPlatform) cindex.Parser {
		if p.Triple == "aarch64-unknown-linux-gnu" {
			return failingParser{}
		}
		return &cfront.Parser{Host: p}
	}}

	results, err := runner.Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "aarch64-unknown-linux-gnu") {
		t.Fatalf("Run() error = %v, want the failed platform named", err)
	}
	if !apperrors.IsParse(err) {
		t.Errorf("error code = %q, want a parse error", apperrors.CodeOf(err))
	}

	failed, ok := results[0], results[1]
	if failed.Err == nil || failed.Document != nil || failed.Path != "" {
		t.Errorf("failed platform result = %+v", failed)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.OutputDirectory, "aarch64-unknown-linux-gnu.json")); statErr == nil {
		t.Error("a document was written for the failed platform")
	}
	if ok.Err != nil || ok.Path == "" {
		t.Errorf("healthy platform result = %+v", ok)
	}
}

func TestRunWithoutOutputDirectory(t *testing.T) {
	cfg := newConfig(t, "x86_64-unknown-linux-gnu")
	cfg.OutputDirectory = ""
	results, err := (&Runner{}).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Path != "" || results[0].Document == nil {
		t.Errorf("result = %+v, want an unwritten document", results[0])
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		cfg := newConfig(t, "x86_64-unknown-linux-gnu")
		cfg.InputFilePath = filepath.Join(t.TempDir(), "absent.h")
		if _, err := (&Runner{}).Run(context.Background(), cfg); apperrors.CodeOf(err) != apperrors.CodeIO {
			t.Errorf("err = %v, want an IO error", err)
		}
	})
	t.Run("no input", func(t *testing.T) {
		cfg := newConfig(t, "x86_64-unknown-linux-gnu")
		cfg.InputFilePath = ""
		if _, err := (&Runner{}).Run(context.Background(), cfg); !apperrors.IsConfig(err) {
			t.Errorf("err = %v, want a config error", err)
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		cfg := newConfig(t, "x86_64-unknown-linux-gnu")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := (&Runner{}).Run(ctx, cfg); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
	t.Run("missing framework", func(t *testing.T) {
		cfg := newConfig(t, "aarch64-apple-darwin")
		cfg.Platforms["aarch64-apple-darwin"] = config.PlatformConfig{
			SystemIncludeDirectories: []string{t.TempDir()},
			Frameworks:               []string{"NoSuchKit"},
		}
		results, err := (&Runner{}).Run(context.Background(), cfg)
		if err == nil || !strings.Contains(err.Error(), "NoSuchKit") {
			t.Errorf("err = %v, want the framework named", err)
		}
		if len(results) != 1 || results[0].Err == nil {
			t.Errorf("results = %+v", results)
		}
	})
}

func TestRunFrameworks(t *testing.T) {
	sdk := t.TempDir()
	headers := filepath.Join(sdk, "DemoKit.framework", "Headers")
	if err := os.MkdirAll(headers, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(headers, "DemoKit.h"), []byte("typedef struct demo_ref *DemoRef;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := newConfig(t, "aarch64-apple-darwin")
	if err := os.WriteFile(cfg.InputFilePath, []byte("#include <DemoKit/DemoKit.h>\nDemoRef demo_open(void);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Platforms["aarch64-apple-darwin"] = config.PlatformConfig{
		SystemIncludeDirectories: []string{sdk},
		Frameworks:               []string{"DemoKit"},
	}
	cfg.Explore.IsEnabledSystemDeclarations = true

	results, err := (&Runner{}).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	doc := results[0].Document
	if _, ok := doc.Functions["demo_open"]; !ok {
		t.Fatalf("demo_open missing from %v", doc.Functions)
	}
	opaque, ok := doc.OpaqueTypes["DemoRef"]
	if !ok {
		t.Fatalf("DemoRef missing from %v", doc.OpaqueTypes)
	}
	if strings.Contains(opaque.Location.FilePath, "ralph-bindgen-frameworks-") {
		t.Errorf("location %q still points into the framework links", opaque.Location.FilePath)
	}
}
