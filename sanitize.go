// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"path/filepath"
	"strings"
)

// sanitizedPath is the validated location of one archive entry inside the
// extraction base directory. The only way to obtain one is through
// [sanitizeEntryPath]; no sanitized path exists without having passed
// validation.
type sanitizedPath struct {
	// rel is the entry path relative to the base, after component
	// stripping, in platform notation.
	rel string

	// abs is the resolved absolute path inside the base directory.
	abs string
}

// sanitizeEntryPath validates the declared path of one archive entry
// against the base directory. Checks run in order and the first failure
// aborts validation:
//
//  1. paths containing a null byte are rejected
//  2. strip leading components; if nothing remains the entry is rejected
//  3. the remainder must resolve inside base, otherwise the entry is a
//     zip-slip attempt
//
// Validation happens before any byte is written, so no partial
// filesystem state can result from a path that is found unsafe.
func sanitizeEntryPath(base, name string, strip uint) (sanitizedPath, error) {
	if strings.IndexByte(name, 0) >= 0 {
		return sanitizedPath{}, &InvalidPathError{Path: name, Reason: "contains null byte"}
	}

	segments := splitSegments(name)
	if uint(len(segments)) <= strip {
		return sanitizedPath{}, &NoComponentsRemainingError{Original: name, Count: strip}
	}
	rel := filepath.Join(segments[strip:]...)

	// filepath.Join cleans ".." lexically, so a non-local result means the
	// entry climbs out of the base directory.
	if !filepath.IsLocal(rel) {
		return sanitizedPath{}, &ZipSlipError{Entry: name, Resolved: filepath.Join(base, rel)}
	}

	return sanitizedPath{rel: rel, abs: filepath.Join(base, rel)}, nil
}

// sanitizeLinkTarget validates the declared target of a symlink entry
// whose own path has already been sanitized to sp. Absolute targets are
// always rejected; relative targets are resolved against the symlink's
// directory and must stay inside base.
func sanitizeLinkTarget(base string, sp sanitizedPath, target string) error {
	if strings.IndexByte(target, 0) >= 0 {
		return &InvalidPathError{Path: target, Reason: "contains null byte"}
	}
	if target == "" {
		return &InvalidPathError{Path: target, Reason: "empty symlink target"}
	}
	if filepath.IsAbs(target) || strings.HasPrefix(target, "/") || strings.HasPrefix(target, "\\") {
		return &AbsoluteSymlinkTargetError{Target: target, Symlink: sp.rel}
	}

	resolved := filepath.Join(filepath.Dir(sp.abs), filepath.FromSlash(target))
	rel, err := filepath.Rel(base, resolved)
	if err != nil || !filepath.IsLocal(rel) {
		return &SymlinkEscapeError{Target: target, Resolved: resolved}
	}
	return nil
}

// splitSegments splits an archive path on forward slashes, dropping empty
// and "." segments. Archive formats declare paths with "/" regardless of
// platform.
func splitSegments(name string) []string {
	var segments []string
	for _, s := range strings.Split(name, "/") {
		if s == "" || s == "." {
			continue
		}
		segments = append(segments, s)
	}
	return segments
}
