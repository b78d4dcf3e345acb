// Package extract runs the explorer once per configured platform and
// writes one document for each.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/raymyers/ralph-bindgen/pkg/cast"
	"github.com/raymyers/ralph-bindgen/pkg/cfront"
	"github.com/raymyers/ralph-bindgen/pkg/cindex"
	"github.com/raymyers/ralph-bindgen/pkg/config"
	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/explore"
	"github.com/raymyers/ralph-bindgen/pkg/logger"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// FrameworkDirectories are searched for Name.framework bundles in addition
// to a platform's system include directories.
var FrameworkDirectories = []string{"/System/Library/Frameworks", "/Library/Frameworks"}

// Result is the outcome of one platform.
type Result struct {
	Platform platform.TargetPlatform
	Document *cast.AbstractSyntaxTree
	// Path is where the document was written; empty when no output
	// directory is configured.
	Path string
	Err  error
}

// Runner explores a header for several platforms.
type Runner struct {
	// NewParser returns the front end for a platform. Nil uses cfront.
	NewParser func(platform.TargetPlatform) cindex.Parser
	Log       *logger.Logger
}

// Run explores cfg.InputFilePath for every configured platform, at most
// cfg.Concurrency at a time. A failed platform does not stop the others;
// the returned error joins every failure. Results are ordered by triple.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) ([]Result, error) {
	log := r.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("extract")

	if cfg.InputFilePath == "" {
		return nil, apperrors.ConfigError("an input header is required", nil)
	}
	if _, err := os.Stat(cfg.InputFilePath); err != nil {
		return nil, apperrors.IOError("reading "+cfg.InputFilePath, err)
	}
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	if cfg.OutputDirectory != "" {
		if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
			return nil, apperrors.IOError("creating "+cfg.OutputDirectory, err)
		}
	}

	results := make([]Result, len(targets))
	g := new(errgroup.Group)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i, target := range targets {
		g.Go(func() error {
			results[i] = r.runPlatform(ctx, log.WithPlatform(target.Triple), cfg, target)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Platform.Triple, res.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (r *Runner) runPlatform(ctx context.Context, log *logger.Logger, cfg *config.Config, target platform.TargetPlatform) Result {
	res := Result{Platform: target}
	parse := cfg.ParseOptions(target.Triple)

	if len(parse.Frameworks) > 0 {
		dirs := append(append([]string(nil), parse.SystemIncludeDirectories...), FrameworkDirectories...)
		fw, err := cfront.LinkFrameworks(dirs, parse.Frameworks)
		if err != nil {
			res.Err = err
			return res
		}
		defer func() {
			if err := fw.Close(); err != nil {
				log.Warn("Removing framework links failed", "error", err)
			}
		}()
		parse.SystemIncludeDirectories = append(parse.SystemIncludeDirectories, fw.Dir)
		for link, headers := range fw.Linked {
			parse.LinkedPaths = append(parse.LinkedPaths, explore.LinkedPath{From: link, To: headers})
		}
	}

	var parser cindex.Parser = &cfront.Parser{Host: target}
	if r.NewParser != nil {
		parser = r.NewParser(target)
	}
	doc, err := explore.New(parser, log).AbstractSyntaxTree(ctx, explore.Request{
		HeaderPath: cfg.InputFilePath,
		Platform:   target,
		Options:    cfg.Explore,
		Parse:      parse,
	})
	if err != nil {
		log.WithError(err).Error("Exploration failed")
		res.Err = err
		return res
	}
	res.Document = doc

	if cfg.OutputDirectory == "" {
		return res
	}
	data, err := cast.Marshal(doc)
	if err != nil {
		res.Err = apperrors.Unreachable("encoding document: %v", err)
		return res
	}
	path := filepath.Join(cfg.OutputDirectory, target.Triple+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		res.Err = apperrors.IOError("writing "+path, err)
		return res
	}
	res.Path = path
	log.Info("Wrote document", "path", path, "nodes", doc.Len())
	return res
}
