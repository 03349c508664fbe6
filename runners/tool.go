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
	"context"
	"fmt"
	"regexp"

	"github.com/arduino/arduino-cli/executils"
	"github.com/arduino/go-paths-helper"
	semver "go.bug.st/relaxed-semver"
)

var versionBanner = regexp.MustCompile(`(?m)^\s*(\S+)\s+v?([0-9]+(?:\.[0-9]+)*\S*)\s*$`)

// ToolVersion runs the tool with the given help flag and parses the
// "<name> <version>" banner it prints first. Help screens often come with a
// non-zero exit status, so only the captured output decides the result.
func ToolVersion(ctx context.Context, executable *paths.Path, helpFlag string) (*semver.RelaxedVersion, error) {
	proc, err := executils.NewProcessFromPath(nil, executable, helpFlag)
	if err != nil {
		return nil, err
	}
	stdout, stderr, runErr := proc.RunAndCaptureOutput(ctx)
	output := append(stdout, stderr...)

	m := versionBanner.FindSubmatch(output)
	if m == nil {
		if runErr != nil {
			return nil, fmt.Errorf("querying %s version: %w", executable.Base(), runErr)
		}
		return nil, fmt.Errorf("no version banner in %s output", executable.Base())
	}
	return semver.ParseRelaxed(string(m[2])), nil
}
