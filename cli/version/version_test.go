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
	"runtime"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
)

func TestVersionInfoToolNotFound(t *testing.T) {
	tool = paths.New(t.TempDir(), "stm32flash").String()
	info := versionInfo(context.Background())
	require.Equal(t, "stm32flash-runner", info.Application)
	require.Equal(t, "not found", info.ToolVersion)
}

func TestVersionInfo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the fake stm32flash is a shell script")
	}
	script := paths.New(t.TempDir(), "stm32flash")
	require.NoError(t, script.WriteFile([]byte("#!/bin/sh\necho 'stm32flash 0.7'\nexit 1\n")))
	require.NoError(t, os.Chmod(script.String(), 0755))

	tool = script.String()
	info := versionInfo(context.Background())
	require.Equal(t, script.String(), info.Tool)
	require.Contains(t, info.ToolVersion, "0.7")
}
