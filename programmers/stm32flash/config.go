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

import (
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/arduino/go-paths-helper"
)

const (
	// DefaultStartAddress is where writes begin when no address is given.
	DefaultStartAddress = "0"
	// DefaultSerialMode is 8 data bits, even parity, 1 stop bit.
	DefaultSerialMode = "8e1"
	// AutoExecutionAddress makes the target jump to the start address.
	AutoExecutionAddress = "auto"
)

var serialModeRegexp = regexp.MustCompile(`^[5-8][neoNEO][12]$`)

// ConfigurationError reports an option value that can't be used.
type ConfigurationError struct {
	Option string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Option, e.Value, e.Reason)
}

// Config holds the options of a single stm32flash invocation. Build it
// with NewConfig and pass it by value: nothing in this package modifies it.
type Config struct {
	Device            string
	BaudRate          BaudRate
	StartAddress      string
	ExecutionAddress  string
	SerialMode        string
	Firmware          *paths.Path // nil means the binary produced by the build
	ForceBinaryParser bool
	GetInfo           bool
	Reset             bool
	Verify            bool
}

// NewConfig fills in the defaults of the unset fields of c and validates
// the result.
func NewConfig(c Config) (Config, error) {
	if c.Device == "" {
		c.Device = DefaultDeviceFor(runtime.GOOS)
	}
	if c.BaudRate == "" {
		c.BaudRate = DefaultBaudRate
	} else if _, err := ParseBaudRate(string(c.BaudRate)); err != nil {
		return Config{}, &ConfigurationError{Option: "baud rate", Value: string(c.BaudRate), Reason: "unsupported speed"}
	}
	if c.StartAddress == "" {
		c.StartAddress = DefaultStartAddress
	}
	if c.SerialMode == "" {
		c.SerialMode = DefaultSerialMode
	}

	if err := checkAddress("start address", c.StartAddress); err != nil {
		return Config{}, err
	}
	if c.ExecutionAddress != "" && !c.autoExecution() {
		if err := checkAddress("execution address", c.ExecutionAddress); err != nil {
			return Config{}, err
		}
	}
	if !serialModeRegexp.MatchString(c.SerialMode) {
		return Config{}, &ConfigurationError{
			Option: "serial mode",
			Value:  c.SerialMode,
			Reason: "expected <data bits 5-8><parity n|e|o><stop bits 1|2>, e.g. 8e1",
		}
	}
	return c, nil
}

func checkAddress(option, value string) error {
	if _, err := strconv.ParseUint(value, 0, 32); err != nil {
		return &ConfigurationError{Option: option, Value: value, Reason: "not a 32 bit hexadecimal or decimal address"}
	}
	return nil
}

func (c Config) autoExecution() bool {
	return strings.EqualFold(c.ExecutionAddress, AutoExecutionAddress)
}

// ResolvedExecutionAddress returns the address the target should jump to
// after writing, or an empty string if no jump was requested.
func (c Config) ResolvedExecutionAddress() string {
	if c.autoExecution() {
		return c.StartAddress
	}
	return c.ExecutionAddress
}

// InfoArgs returns the stm32flash arguments that only print the device
// information.
func (c Config) InfoArgs() []string {
	return []string{"-b", string(c.BaudRate), "-m", c.SerialMode, c.Device}
}

// WriteArgs returns the stm32flash arguments that write size bytes of
// firmware. The order of the arguments is always the same.
func (c Config) WriteArgs(firmware *paths.Path, size int64) []string {
	args := []string{
		"-b", string(c.BaudRate),
		"-S", c.StartAddress + ":" + strconv.FormatInt(size, 10),
		"-m", c.SerialMode,
		"-w", firmware.String(),
	}
	if addr := c.ResolvedExecutionAddress(); addr != "" {
		args = append(args, "-g", addr)
	}
	if c.ForceBinaryParser {
		args = append(args, "-f")
	}
	if c.Reset {
		args = append(args, "-R")
	}
	if c.Verify {
		args = append(args, "-v")
	}
	return append(args, c.Device)
}
