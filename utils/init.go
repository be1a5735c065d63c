package utils

import (
	"flag"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type options struct {
	minlen         uint
	maxRefinements int
	nodesep        float64
	timeout        time.Duration
	function       string
	outputFormat   string
	gopath         string
	modulePath     string
	config         string
	task           string
	pathOrder      string
	exportDir      string
	logLevel       string
	eager          bool
	noColorize     bool
	verbose        bool
	includeTests   bool
	visualize      bool
}

const (
	_VERIFY = iota
	_CFA_TO_DOT
	_ARG_TO_DOT
	_PRINT_CFA
)

// CanColorize wraps a colorizing function such that colorization is
// skipped when disabled on the command line.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%v", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"verify",
	"Run counterexample-guided abstraction refinement on the target function",
}, {
	"cfa-to-dot",
	"Render the control-flow automaton of the target function",
}, {
	"arg-to-dot",
	"Verify the target function and render the final abstract reachability graph",
}, {
	"print-cfa",
	"Print every edge of the control-flow automaton of the target function",
}}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

// Opts exposes the command line options.
func Opts() optInterface {
	return optInterface{}
}

func (optInterface) Minlen() uint {
	return opts.minlen
}
func (optInterface) Nodesep() float64 {
	return opts.nodesep
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) ConfigPath() string {
	return opts.config
}
func (optInterface) Timeout() time.Duration {
	return opts.timeout
}
func (optInterface) PathOrder() string {
	return opts.pathOrder
}
func (optInterface) MaxRefinements() int {
	return opts.maxRefinements
}
func (optInterface) Eager() bool {
	return opts.eager
}
func (optInterface) ExportDir() string {
	return opts.exportDir
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) IncludeTests() bool {
	return opts.includeTests
}
func (optInterface) Visualize() bool {
	return opts.visualize
}
func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsVerify() bool {
	return opts.task == task[_VERIFY].flag
}
func (taskInterface) IsCfaToDot() bool {
	return opts.task == task[_CFA_TO_DOT].flag
}
func (taskInterface) IsArgToDot() bool {
	return opts.task == task[_ARG_TO_DOT].flag
}
func (taskInterface) IsPrintCfa() bool {
	return opts.task == task[_PRINT_CFA].flag
}

// IsSet reports whether the flag with the given name was passed explicitly.
// Explicit flags take precedence over values from the configuration file.
func (optInterface) IsSet(name string) (set bool) {
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.UintVar(&(opts.minlen), "minlen", 2, "Minimum edge length (for wider output).")
	flag.Float64Var(&(opts.nodesep), "nodesep", 0.35, "Minimum space between two adjacent nodes in the same rank (for taller output).")
	flag.StringVar(&(opts.function), "fun", "main", "Target function. Function names need not be qualified with the package name.")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format [dot | svg | png | jpg | ...]")
	flag.StringVar(&(opts.gopath), "gopath", "examples", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make package loading run in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.config), "config", "", "Path to a YAML file configuring refinement.")
	flag.StringVar(&(opts.task), "task", task[_VERIFY].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.StringVar(&(opts.pathOrder), "path-order", "size-ascending", "Order in which error paths are refined [size-ascending | zigzag]")
	flag.StringVar(&(opts.exportDir), "export", "", "Directory for debug dumps of interpolants and graphs. Disabled when empty.")
	flag.StringVar(&(opts.logLevel), "log-level", "info", "Logging level [debug | info | warn | error]")
	flag.IntVar(&(opts.maxRefinements), "max-refinements", 100, "Upper bound on refinement rounds. 0 disables the bound.")
	flag.DurationVar(&(opts.timeout), "timeout", 0, "Abort verification after the given duration. 0 disables the timeout.")
	flag.BoolVar(&(opts.eager), "eager", false, "Restart exploration from the root after every refinement instead of lazily.")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include test files when loading the target package.")
	flag.BoolVar(&(opts.visualize), "visualize", false, "enable visualization via XDot")
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		log.Fatalf("Value \"%s\" is not valid for -log-level", opts.logLevel)
	}
	if opts.verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if Opts().Task().IsCfaToDot() || Opts().Task().IsArgToDot() {
		opts.noColorize = true
	}
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
