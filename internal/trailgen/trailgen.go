// Package trailgen drives the model checker and the test generator to
// turn a model's counterexample trails into test sources in the working
// directory.
package trailgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"testbuilder/internal/naming"
	"testbuilder/internal/ready"
	"testbuilder/internal/runner"
)

// DefaultSpin is the model checker command when none is configured.
const DefaultSpin = "spin"

// Engine generates trails, trail summaries and test sources for one
// model at a time. All file traffic happens inside Dir.
type Engine struct {
	// Dir is the working directory holding the model inputs and
	// receiving every generated artifact.
	Dir string
	// Spin is the model checker command.
	Spin string
	// Generator is the test-source generator executable, invoked as
	// `<Generator> <model> [<0-based trail offset>]`.
	Generator string
	// Runner executes the external tools.
	Runner runner.Runner
}

func New(dir, generator string, r runner.Runner) Engine {
	return Engine{Dir: dir, Spin: DefaultSpin, Generator: generator, Runner: r}
}

// Result describes what one Generate call produced.
type Result struct {
	// Trails is the number of counterexample trails the checker wrote.
	Trails int
	// Summaries are the trail summary files written, in order.
	Summaries []string
}

func (e Engine) spin() string {
	if e.Spin == "" {
		return DefaultSpin
	}
	return e.Spin
}

// Generate validates the model's inputs, runs the checker in
// counterexample-enumeration mode and converts each trail into a summary
// plus generated test sources.
//
// With a single trail the summary is unindexed (m.spn) and the generator
// gets only the model name. With N trails the checker replays trail i
// using its 1-based selector while the summary and the generator argument
// use the 0-based offset i-1. Zero trails means the model has no
// counterexamples; nothing further happens and that is not an error.
func (e Engine) Generate(ctx context.Context, model string) (Result, error) {
	if err := naming.CheckModel(model); err != nil {
		return Result{}, err
	}
	if err := ready.Validate(e.Dir, model); err != nil {
		return Result{}, err
	}

	pml := naming.ModelFile(model)
	if err := e.Runner.Run(ctx, e.Dir, nil, e.spin(), "-DTEST_GEN", "-run", "-E", "-c0", "-e", pml); err != nil {
		return Result{}, err
	}

	trails, err := naming.Expand(e.Dir, naming.TrailGlob(model))
	if err != nil {
		return Result{}, err
	}
	res := Result{Trails: len(trails)}

	if len(trails) == 0 {
		return res, nil
	}

	if len(trails) == 1 {
		spn := naming.SpinFile(model)
		if err := e.writeSummary(ctx, spn, "-T", "-t", pml); err != nil {
			return res, err
		}
		res.Summaries = append(res.Summaries, spn)
		if err := e.Runner.Run(ctx, e.Dir, nil, e.Generator, model); err != nil {
			return res, err
		}
		return res, nil
	}

	for i := 1; i <= len(trails); i++ {
		spn := naming.SpinFileAt(model, i-1)
		if err := e.writeSummary(ctx, spn, "-T", fmt.Sprintf("-t%d", i), pml); err != nil {
			return res, err
		}
		res.Summaries = append(res.Summaries, spn)
		if err := e.Runner.Run(ctx, e.Dir, nil, e.Generator, model, fmt.Sprintf("%d", i-1)); err != nil {
			return res, err
		}
	}
	return res, nil
}

// writeSummary replays one trail with the checker and captures its stdout
// as the summary file.
func (e Engine) writeSummary(ctx context.Context, name string, args ...string) error {
	f, err := os.Create(filepath.Join(e.Dir, name))
	if err != nil {
		return fmt.Errorf("create summary %s: %w", name, err)
	}
	runErr := e.Runner.Run(ctx, e.Dir, f, e.spin(), args...)
	if err := f.Close(); err != nil && runErr == nil {
		return fmt.Errorf("write summary %s: %w", name, err)
	}
	return runErr
}
