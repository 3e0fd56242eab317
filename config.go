// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"runtime"
	"time"
)

// ConfigOption is a function pointer to implement the option pattern.
type ConfigOption func(*Config)

// Config holds all configuration options for the extraction process.
// Options are adjusted in option pattern style and are immutable once
// extraction begins.
//
// The default configuration is secure by default: entry paths are always
// validated, extraction is staged and committed atomically, and resource
// exhaustion limits are enabled.
type Config struct {
	// cacheInMemory spools streamed zip archives to memory instead of a
	// scratch file on disk.
	cacheInMemory bool

	// customCreateDirMode is the mode for directories that are created but
	// not declared in the archive (respecting umask).
	customCreateDirMode fs.FileMode

	// hardlinkFallback selects the behavior of [LinkOrCopy] on a
	// cross-device link error.
	hardlinkFallback FallbackStrategy

	// extractionType pins the input format instead of detecting it from
	// the stream head.
	extractionType string

	// logger stream for extraction
	logger logger

	// maxExtractionSize is the maximum size over all extracted files.
	// Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxFiles is the maximum number of entries (including directories and
	// symlinks) in an archive. Set value to -1 to disable the check.
	maxFiles int64

	// maxInputSize is the maximum size of the input.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// overwrite decides if an existing, non-empty destination may be
	// replaced on commit.
	overwrite bool

	// preservePermissions applies archive-declared mode bits to extracted
	// files and directories.
	preservePermissions bool

	// replaceRetries bounds the directory replace retry loop.
	replaceRetries int

	// replaceRetryDelay is the base delay between replace attempts; the
	// actual delay grows linearly with the attempt number.
	replaceRetryDelay time.Duration

	// reportHook is invoked with the extraction report once extraction has
	// finished. Do not adjust this value after extraction started.
	reportHook ReportHook

	// scratchDir is the root under which staging directories and spool
	// files are created.
	scratchDir string

	// stripComponents removes the given number of leading path segments
	// from every entry.
	stripComponents uint
}

const (
	defaultCacheInMemory       = false                 // spool zip streams to disk
	defaultCustomCreateDirMode = 0750                  // default directory permissions rwxr-x---
	defaultHardlinkFallback    = FallbackCopy          // copy on cross-device link
	defaultMaxExtractionSize   = 1 << (10 * 3)         // 1 Gb
	defaultMaxFiles            = 100000                // 100k files
	defaultMaxInputSize        = 1 << (10 * 3)         // 1 Gb
	defaultOverwrite           = false                 // don't replace existing destinations
	defaultReplaceRetries      = 5                     // directory replace attempts
	defaultReplaceRetryDelay   = 50 * time.Millisecond // base delay between attempts
	defaultStripComponents     = 0                     // keep full entry paths
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation report hook
	defaultReportHook ReportHook
)

// NewConfig creates a [Config] with secure defaults and applies opts in
// option pattern style.
func NewConfig(opts ...ConfigOption) *Config {
	config := &Config{
		cacheInMemory:       defaultCacheInMemory,
		customCreateDirMode: defaultCustomCreateDirMode,
		hardlinkFallback:    defaultHardlinkFallback,
		logger:              defaultLogger,
		maxExtractionSize:   defaultMaxExtractionSize,
		maxFiles:            defaultMaxFiles,
		maxInputSize:        defaultMaxInputSize,
		overwrite:           defaultOverwrite,
		preservePermissions: runtime.GOOS != "windows",
		replaceRetries:      defaultReplaceRetries,
		replaceRetryDelay:   defaultReplaceRetryDelay,
		reportHook:          defaultReportHook,
		scratchDir:          "", // resolved to the destination's parent by the workspace
		stripComponents:     defaultStripComponents,
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// CacheInMemory returns true if streamed zip archives are spooled to
// memory instead of a scratch file.
func (c *Config) CacheInMemory() bool {
	return c.cacheInMemory
}

// CheckMaxFiles checks if counter exceeds the configured maximum. If the
// maximum is exceeded, [ErrMaxFilesExceeded] is returned.
func (c *Config) CheckMaxFiles(counter int64) error {
	if c.maxFiles == -1 {
		return nil
	}
	if counter > c.maxFiles {
		return ErrMaxFilesExceeded
	}
	return nil
}

// CustomCreateDirMode returns the mode for directories that are created
// but not declared in the archive. (respecting umask)
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// ExtractType returns the pinned extraction type, or an empty string if
// the format is detected from the stream head.
func (c *Config) ExtractType() string {
	return c.extractionType
}

// HardlinkFallback returns the [FallbackStrategy] for cross-device
// hardlink errors.
func (c *Config) HardlinkFallback() FallbackStrategy {
	return c.hardlinkFallback
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxExtractionSize returns the maximum size over all extracted files.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxFiles returns the maximum number of entries in an archive.
func (c *Config) MaxFiles() int64 {
	return c.maxFiles
}

// MaxInputSize returns the maximum size of the input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// Overwrite returns true if an existing, non-empty destination may be
// replaced on commit.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// PreservePermissions returns true if archive-declared mode bits are
// applied to extracted files and directories.
func (c *Config) PreservePermissions() bool {
	return c.preservePermissions
}

// ReplaceRetries returns the maximum number of directory replace attempts.
func (c *Config) ReplaceRetries() int {
	return c.replaceRetries
}

// ReplaceRetryDelay returns the base delay between directory replace
// attempts.
func (c *Config) ReplaceRetryDelay() time.Duration {
	return c.replaceRetryDelay
}

// ReportHook returns the report hook.
func (c *Config) ReportHook() ReportHook {
	if c.reportHook == nil {
		return func(ctx context.Context, r *Report) {
			// noop
		}
	}
	return c.reportHook
}

// ScratchDir returns the root for staging directories and spool files. An
// empty string means the staging directory is placed next to the
// destination, on the same filesystem; zip spool files then use the
// system temporary directory.
func (c *Config) ScratchDir() string {
	return c.scratchDir
}

// StripComponents returns the number of leading path segments removed
// from every entry.
func (c *Config) StripComponents() uint {
	return c.stripComponents
}

// WithCacheInMemory options pattern function to spool streamed zip
// archives to memory instead of a scratch file on disk.
func WithCacheInMemory(cache bool) ConfigOption {
	return func(c *Config) {
		c.cacheInMemory = cache
	}
}

// WithCustomCreateDirMode options pattern function to set the mode for
// directories that are created but not declared in the archive.
// (respecting umask)
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithExtractType options pattern function to pin the input format (e.g.
// "zip", "tar", "tar.gz") instead of detecting it from the stream head.
func WithExtractType(extractionType string) ConfigOption {
	return func(c *Config) {
		if len(extractionType) > 0 {
			c.extractionType = extractionType
		}
	}
}

// WithHardlinkFallback options pattern function to select the behavior
// of [LinkOrCopy] on a cross-device link error.
func WithHardlinkFallback(strategy FallbackStrategy) ConfigOption {
	return func(c *Config) {
		c.hardlinkFallback = strategy
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxExtractionSize options pattern function to set the maximum size
// over all extracted files. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxFiles options pattern function to set the maximum number of
// extracted files, directories and symlinks. (-1 to disable check)
func WithMaxFiles(maxFiles int64) ConfigOption {
	return func(c *Config) {
		c.maxFiles = maxFiles
	}
}

// WithMaxInputSize options pattern function to set the maximum input
// size. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithOverwrite options pattern function to allow replacing an existing,
// non-empty destination on commit.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithPreservePermissions options pattern function to apply
// archive-declared mode bits to extracted files and directories. Enabled
// by default on platforms that support them.
func WithPreservePermissions(preserve bool) ConfigOption {
	return func(c *Config) {
		c.preservePermissions = preserve
	}
}

// WithReplaceRetries options pattern function to bound the directory
// replace retry loop and its base delay.
func WithReplaceRetries(retries int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.replaceRetries = retries
		c.replaceRetryDelay = baseDelay
	}
}

// WithReportHook options pattern function to set a [ReportHook], which is
// called after extraction has finished.
func WithReportHook(hook ReportHook) ConfigOption {
	return func(c *Config) {
		c.reportHook = hook
	}
}

// WithScratchDir options pattern function to set the root under which
// staging directories and spool files are created. The staging directory
// must share a filesystem with the destination for the commit rename to
// work; by default it is placed next to the destination.
func WithScratchDir(dir string) ConfigOption {
	return func(c *Config) {
		c.scratchDir = dir
	}
}

// WithStripComponents options pattern function to remove the given number
// of leading path segments from every entry.
func WithStripComponents(n uint) ConfigOption {
	return func(c *Config) {
		c.stripComponents = n
	}
}
