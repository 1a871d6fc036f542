package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/hashicorp/go-hclog"

	"github.com/Fepozopo/subsize/pkg/dims"
	"github.com/Fepozopo/subsize/pkg/editor"
	"github.com/Fepozopo/subsize/pkg/subsize"
)

// Version is set at build time with -ldflags "-X .../pkg/cli.Version=...".
var Version = "dev"

// errUsage marks bad command line input.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: subsize <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  dims <srcW> <srcH> <dstW> <dstH> [crop] [--force-identical]")
	fmt.Fprintln(w, "                 compute the resize rectangles, or print false")
	fmt.Fprintln(w, "  constrain <w> <h> <maxW> <maxH>")
	fmt.Fprintln(w, "                 fit dimensions inside a box")
	fmt.Fprintln(w, "  sizes [--config f]")
	fmt.Fprintln(w, "                 list registered sizes")
	fmt.Fprintln(w, "  generate [--config f] [--backend b] [--smart] [--preview] [file...]")
	fmt.Fprintln(w, "                 create sub-sizes; with no file, pick with fzf")
	fmt.Fprintln(w, "  watch [--config f] [--backend b] [--smart] <dir>")
	fmt.Fprintln(w, "                 create sub-sizes for images added to dir")
	fmt.Fprintln(w, "  update         check for a newer release")
	fmt.Fprintln(w, "  version        print the version and editor backends")
	fmt.Fprintln(w, "  help           show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Crop is false, true, or \"h,v\" with h in left|center|right and v in top|center|bottom.")
}

type app struct {
	stdout, stderr io.Writer
	logger         hclog.Logger
}

// Run executes the command in args (without the program name) and returns
// the process exit code.
func Run(args []string, logger hclog.Logger) int {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, logger: logger}
	return a.run(args)
}

func (a *app) run(args []string) int {
	if a.logger == nil {
		a.logger = hclog.NewNullLogger()
	}
	if len(args) == 0 {
		usage(a.stderr)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "dims":
		err = a.dims(rest)
	case "constrain":
		err = a.constrain(rest)
	case "sizes":
		err = a.sizes(rest)
	case "generate":
		err = a.generate(rest)
	case "watch":
		err = a.watch(rest)
	case "update":
		err = CheckForUpdates(a.logger.Named("update"))
	case "version":
		fmt.Fprintf(a.stdout, "subsize %s (backends: %s)\n", Version, strings.Join(editor.Backends(), ", "))
	case "help", "-h", "--help":
		usage(a.stdout)
	default:
		fmt.Fprintf(a.stderr, "unknown command: %s\n\n", cmd)
		usage(a.stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(a.stderr, err)
		return 2
	case dims.IsNoOp(err):
		return 1
	default:
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return 1
	}
}

// parseArgs parses flags that may appear between positional arguments and
// returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", errUsage, s)
		}
		out[i] = n
	}
	return out, nil
}

func (a *app) dims(args []string) error {
	fs := a.flagSet("dims")
	force := fs.Bool("force-identical", false, "return a result when the size would not change")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 4 && len(pos) != 5 {
		return fmt.Errorf("%w: dims <srcW> <srcH> <dstW> <dstH> [crop]", errUsage)
	}
	n, err := parseInts(pos[:4])
	if err != nil {
		return err
	}
	crop := dims.NoCrop
	if len(pos) == 5 {
		if crop, err = dims.ParseCrop(pos[4]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	r, err := dims.Resize(n[0], n[1], n[2], n[3], crop, dims.Options{ForceIdentical: *force})
	if dims.IsNoOp(err) {
		fmt.Fprintln(a.stdout, "false")
		fmt.Fprintln(a.stderr, err)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, r)
	return nil
}

func (a *app) constrain(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("%w: constrain <w> <h> <maxW> <maxH>", errUsage)
	}
	n, err := parseInts(args)
	if err != nil {
		return err
	}
	w, h := dims.Constrain(n[0], n[1], n[2], n[3])
	fmt.Fprintf(a.stdout, "%dx%d\n", w, h)
	return nil
}

func (a *app) sizes(args []string) error {
	fs := a.flagSet("sizes")
	cfg := ConfigFromEnv(a.logger)
	fs.StringVar(&cfg.SizesFile, "config", cfg.SizesFile, "sizes file (.toml, .yaml)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tWIDTH\tHEIGHT\tCROP")
	for _, s := range reg.All() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Name, s.Width, s.Height, s.Crop)
	}
	return tw.Flush()
}

// generatorFlags registers the flags shared by generate and watch.
func (a *app) generatorFlags(fs *flag.FlagSet) func() (*subsize.Generator, error) {
	cfg := ConfigFromEnv(a.logger)
	fs.StringVar(&cfg.SizesFile, "config", cfg.SizesFile, "sizes file (.toml, .yaml)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "editor backend: "+strings.Join(editor.Backends(), ", "))
	smart := fs.Bool("smart", false, "place crops on the most interesting region")

	return func() (*subsize.Generator, error) {
		reg, err := cfg.Registry()
		if err != nil {
			return nil, err
		}
		return &subsize.Generator{
			Registry:       reg,
			Backend:        cfg.Backend,
			Threshold:      cfg.Threshold,
			Quality:        cfg.Quality,
			ForceIdentical: cfg.ForceIdentical,
			SmartCrop:      *smart,
			Logger:         a.logger.Named("generate"),
		}, nil
	}
}

func (a *app) generate(args []string) error {
	fs := a.flagSet("generate")
	build := a.generatorFlags(fs)
	preview := fs.Bool("preview", false, "show generated files in the terminal")
	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	g, err := build()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		files, err = SelectFilesWithFzf(".")
		if err != nil {
			a.logger.Debug("fzf selection unavailable", "error", err)
			path, perr := PromptLine("Image path: ")
			if perr != nil || path == "" {
				return fmt.Errorf("%w: no input files", errUsage)
			}
			files = []string{path}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, f := range files {
		md, err := g.Generate(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(a.stderr, "%s: %v\n", f, err)
			failed++
			continue
		}
		fmt.Fprintf(a.stdout, "%s: %d sizes\n", f, len(md.Sizes))
		dir := filepath.Dir(f)
		for _, name := range md.Files() {
			fmt.Fprintf(a.stdout, "  %s\n", name)
			if *preview && PreviewSupported() {
				if err := PreviewFile(a.stdout, filepath.Join(dir, name)); err != nil {
					a.logger.Debug("Preview failed", "file", name, "error", err)
				}
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func (a *app) watch(args []string) error {
	fs := a.flagSet("watch")
	build := a.generatorFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: watch <dir>", errUsage)
	}
	g, err := build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return g.Watch(ctx, pos[0])
}
