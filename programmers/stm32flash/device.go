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

package stm32flash

// DefaultDeviceFor returns the serial port used when none is given, for
// the operating system goos (as in runtime.GOOS).
func DefaultDeviceFor(goos string) string {
	if goos == "darwin" {
		return "/dev/tty.SLAB_USBtoUART"
	}
	return "/dev/ttyUSB0"
}
