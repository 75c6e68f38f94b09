// Package runner is the narrow seam between the pipeline and the external
// tools it drives (the model checker, the test generator, the build tool
// and the simulator). Tests substitute a scripted fake.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes one external command in dir and waits for it. stdout
// receives the command's standard output when non-nil; otherwise output
// goes to the console. A non-zero exit is returned as an error.
type Runner interface {
	Run(ctx context.Context, dir string, stdout io.Writer, name string, args ...string) error
}

// Exec runs commands with os/exec.
type Exec struct{}

func (Exec) Run(ctx context.Context, dir string, stdout io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if stdout == nil {
		cmd.Stdout = os.Stdout
	} else {
		cmd.Stdout = stdout
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
