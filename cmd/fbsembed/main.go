// Command fbsembed converts a FlatBuffers schema file into Go source that
// embeds the schema text for use with flatjson.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/reoring/flatjson/internal/embedgen"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "OVERVIEW: Converts a flatbuffers schema .fbs to embeddable Go source\n\nUSAGE: fbsembed -i <input> -o <output>\n\nOPTIONS:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.NewWithOptions(stderr, log.Options{Prefix: "fbsembed", ReportTimestamp: false})

	var opts embedgen.Options
	var verbose bool
	fs := flag.NewFlagSet("fbsembed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Input, "i", "", "input schema file")
	fs.StringVar(&opts.OutputDir, "o", "", "output folder")
	fs.StringVar(&opts.Ext, "filename-ext", embedgen.DefaultExt, "extension for the generated file")
	fs.StringVar(&opts.RcSuffix, "filename-rc-suffix", embedgen.DefaultRcSuffix, "suffix for the generated file name")
	fs.StringVar(&opts.Package, "package", "", "package name (default: last namespace component, lower-cased)")
	fs.BoolVar(&verbose, "v", false, "enable verbose logs")

	if len(args) == 0 {
		usage(stdout, fs)
		return 0
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(stdout, fs)
			return 0
		}
		logger.Error("invalid arguments", "err", err)
		return 1
	}
	if fs.NArg() > 0 {
		logger.Error("invalid argument", "arg", fs.Arg(0))
		return 1
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	logger.Debug("generating", "input", opts.Input, "output", opts.OutputDir, "ext", opts.Ext, "suffix", opts.RcSuffix)

	out, err := embedgen.Generate(opts)
	if err != nil {
		logger.Error("generation failed", "err", err)
		return 1
	}
	logger.Debug("wrote resource", "path", out)
	return 0
}
