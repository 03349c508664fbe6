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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithTool(t *testing.T) {
	require.Equal(t, "0.0.0-git", VersionInfo.VersionString)

	info := VersionInfo.WithTool("stm32flash", "0.7")
	require.Equal(t, "stm32flash", info.Tool)
	require.Empty(t, VersionInfo.Tool)
	require.Contains(t, info.String(), "stm32flash Version: 0.7")
	require.NotContains(t, VersionInfo.String(), "\n")
	require.Equal(t, info, info.Data())
}
