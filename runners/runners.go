/*
	stm32flash-runner
	Copyright (c) 2021 Arduino LLC.  All right reserved.

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package runners

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/arduino/arduino-cli/executils"
	"github.com/arduino/go-paths-helper"
)

// ToolNotFoundError is returned when a runner's external program can't be
// found on the execution path.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("required program %s not found; install it or add it to the PATH", e.Tool)
}

// ExternalToolError is returned when the external program exits with a
// non-zero status.
type ExternalToolError struct {
	Tool     string
	ExitCode int
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

// Require looks up tool (a program name or a path to it) and returns the
// absolute path of the executable.
func Require(tool string) (*paths.Path, error) {
	p, err := exec.LookPath(tool)
	if err != nil {
		return nil, &ToolNotFoundError{Tool: tool}
	}
	toolPath := paths.New(p)
	if err := toolPath.ToAbs(); err != nil {
		return nil, err
	}
	return toolPath, nil
}

// CheckCall runs the executable with args and waits for it to terminate.
// The child output is copied to stdout and stderr as it is produced.
func CheckCall(executable *paths.Path, args []string, stdout, stderr io.Writer) error {
	cmd, err := executils.NewProcessFromPath(nil, executable, args...)
	if err != nil {
		return err
	}
	cmd.RedirectStdoutTo(stdout)
	cmd.RedirectStderrTo(stderr)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExternalToolError{Tool: executable.Base(), ExitCode: exitErr.ExitCode()}
		}
		return fmt.Errorf("running %s: %w", executable, err)
	}
	return nil
}

// QuoteCommand renders a command line the way a user would type it in a shell.
func QuoteCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			quoted[i] = "\"" + strings.ReplaceAll(arg, "\"", "\\\"") + "\""
		} else {
			quoted[i] = arg
		}
	}
	return strings.Join(quoted, " ")
}
