package cfront

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
)

// Frameworks makes Apple framework headers includable as <Name/header.h>.
type Frameworks struct {
	// Dir is the include directory holding one symlink per framework.
	Dir string
	// Linked maps each symlink to the Headers directory it points at.
	Linked map[string]string
}

// LinkFrameworks searches dirs for Name.framework/Headers for each name and
// links it into a temporary directory as Dir/Name. Close removes the links.
func LinkFrameworks(dirs, names []string) (*Frameworks, error) {
	tmp, err := os.MkdirTemp("", "ralph-bindgen-frameworks-")
	if err != nil {
		return nil, apperrors.IOError("creating framework directory", err)
	}
	fw := &Frameworks{Dir: tmp, Linked: make(map[string]string)}
	for _, name := range names {
		headers := findFramework(dirs, name)
		if headers == "" {
			_ = fw.Close()
			return nil, apperrors.IOError(fmt.Sprintf("framework '%s' not found", name), os.ErrNotExist).
				WithDetail("framework", name)
		}
		link := filepath.Join(tmp, name)
		if err := os.Symlink(headers, link); err != nil {
			_ = fw.Close()
			return nil, apperrors.IOError(fmt.Sprintf("linking framework '%s'", name), err)
		}
		fw.Linked[link] = headers
	}
	return fw, nil
}

func findFramework(dirs []string, name string) string {
	for _, dir := range dirs {
		headers := filepath.Join(dir, name+".framework", "Headers")
		if info, err := os.Stat(headers); err == nil && info.IsDir() {
			return headers
		}
	}
	return ""
}

// Close removes the temporary directory and its links.
func (f *Frameworks) Close() error {
	if f == nil || f.Dir == "" {
		return nil
	}
	return os.RemoveAll(f.Dir)
}
