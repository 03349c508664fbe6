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

package version

import (
	"context"
	"os"

	"github.com/arduino/stm32flash-runner/cli/feedback"
	"github.com/arduino/stm32flash-runner/programmers/stm32flash"
	"github.com/arduino/stm32flash-runner/runners"
	v "github.com/arduino/stm32flash-runner/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tool string

// NewCommand created a new `version` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "version",
		Short:   "Shows version number of stm32flash-runner.",
		Long:    "Shows the version number of stm32flash-runner and of the stm32flash program it would run.",
		Example: "  " + os.Args[0] + " version",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	command.Flags().StringVar(&tool, "stm32flash", stm32flash.Name, "stm32flash program to query, name or path")
	return command
}

func run(cmd *cobra.Command, args []string) {
	feedback.PrintResult(versionInfo(cmd.Context()))
}

func versionInfo(ctx context.Context) *v.Info {
	if ctx == nil {
		ctx = context.Background()
	}
	toolPath, err := runners.Require(tool)
	if err != nil {
		logrus.Debug(err)
		return v.VersionInfo.WithTool(tool, "not found")
	}
	toolVersion, err := runners.ToolVersion(ctx, toolPath, "-h")
	if err != nil {
		logrus.Warn(err)
		return v.VersionInfo.WithTool(tool, "unknown")
	}
	return v.VersionInfo.WithTool(tool, toolVersion.String())
}
