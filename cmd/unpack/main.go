// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/unpackd/unpack"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI are the cli parameters for the unpack binary.
type CLI struct {
	Archive           string           `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN)"`
	Destination       string           `arg:"" name:"destination" help:"Output directory."`
	CacheInMemory     bool             `optional:"" help:"Spool streamed zip archives to memory instead of disk."`
	MaxFiles          int64            `optional:"" default:"100000" help:"Maximum entries extracted before stop. (disable check: -1)"`
	MaxExtractionSize int64            `optional:"" default:"1073741824" help:"Maximum extraction size in bytes. (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum input size in bytes. (disable check: -1)"`
	NoPermissions     bool             `short:"P" help:"Do not apply archive-declared permission bits."`
	Overwrite         bool             `short:"O" help:"Replace an existing destination."`
	Report            bool             `short:"R" optional:"" default:"false" help:"Print the extraction report as JSON after extraction."`
	StripComponents   uint             `short:"s" optional:"" default:"0" help:"Strip the given number of leading path components."`
	Type              string           `short:"t" optional:"" help:"Pin the archive type (e.g. tar.gz, zip) instead of detecting it."`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

func main() {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A staged, atomic extraction utility"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg := unpack.NewConfig(
		unpack.WithCacheInMemory(cli.CacheInMemory),
		unpack.WithExtractType(cli.Type),
		unpack.WithLogger(logger),
		unpack.WithMaxExtractionSize(cli.MaxExtractionSize),
		unpack.WithMaxFiles(cli.MaxFiles),
		unpack.WithMaxInputSize(cli.MaxInputSize),
		unpack.WithOverwrite(cli.Overwrite),
		unpack.WithPreservePermissions(!cli.NoPermissions),
		unpack.WithStripComponents(cli.StripComponents),
	)

	var archive io.Reader
	if cli.Archive == "-" {
		archive = bufio.NewReader(os.Stdin)
	} else {
		f, err := os.Open(cli.Archive)
		if err != nil {
			logger.Error("opening archive failed", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		archive = f
	}

	report, err := unpack.Extract(ctx, archive, cli.Destination, cfg)
	if err != nil {
		logger.Error("extraction failed", "err", err)
		os.Exit(1)
	}
	if cli.Report {
		fmt.Println(report)
	}
}
