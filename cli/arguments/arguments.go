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

package arguments

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/arduino/stm32flash-runner/cli/globals"
	"github.com/arduino/stm32flash-runner/programmers/stm32flash"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags contains the options of the stm32flash runner.
type Flags struct {
	Device            string
	BaudRate          stm32flash.BaudRate
	StartAddress      string
	ExecutionAddress  string
	SerialMode        string
	Firmware          string
	FirmwareChecksum  string
	ForceBinaryParser bool
	GetInfo           bool
	Reset             bool
	Verify            bool

	BuildDir string
	Tool     string
	DryRun   bool
}

// AddToCommand adds the runner flags to the specified Command
func (f *Flags) AddToCommand(cmd *cobra.Command) {
	defaultDevice := stm32flash.DefaultDeviceFor(runtime.GOOS)
	f.BaudRate = stm32flash.DefaultBaudRate

	cmd.Flags().StringVar(&f.Device, "device", defaultDevice, "serial port to flash")
	cmd.Flags().Var(&f.BaudRate, "baud-rate", "serial baud rate, one of: "+strings.Join(stm32flash.BaudRates, ", "))
	cmd.Flags().BoolVar(&f.ForceBinaryParser, "force-binary-parser", false, "force binary parser")
	cmd.Flags().BoolVar(&f.GetInfo, "get-info", false, "get device information")
	cmd.Flags().StringVar(&f.StartAddress, "start-address", stm32flash.DefaultStartAddress, "specify start address for write operation")
	cmd.Flags().StringVar(&f.ExecutionAddress, "execution-addr", "", "start execution at specified address, 'auto' equals same as start address")
	cmd.Flags().StringVar(&f.SerialMode, "serial-mode", stm32flash.DefaultSerialMode, "serial port mode")
	cmd.Flags().BoolVar(&f.Reset, "reset", false, "reset device at exit")
	cmd.Flags().BoolVar(&f.Verify, "verify", false, "verify writes")
	cmd.Flags().StringVar(&f.Firmware, "firmware", "", "firmware file or http(s) URL to flash, default is the binary of the build")
	cmd.Flags().StringVar(&f.FirmwareChecksum, "firmware-checksum", "", "expected checksum of a downloaded firmware, e.g. SHA-256:<hex digest>")

	cmd.Flags().StringVarP(&f.BuildDir, "build-dir", "d", globals.DefaultBuildDir, "application build directory")
	cmd.Flags().StringVar(&f.Tool, "stm32flash", stm32flash.Name, "stm32flash program to use, name or path")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "print the stm32flash command instead of running it")

	cmd.RegisterFlagCompletionFunc("baud-rate", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return stm32flash.BaudRates, cobra.ShellCompDirectiveNoFileComp
	})
	cmd.RegisterFlagCompletionFunc("execution-addr", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{stm32flash.AutoExecutionAddress}, cobra.ShellCompDirectiveNoFileComp
	})
}

// ApplyRunnerArgs uses args, in the "--name=value", "--name value" or
// "--flag" forms recorded in runners.yaml, as defaults for the flags of cmd
// the user didn't set on the command line.
func (f *Flags) ApplyRunnerArgs(cmd *cobra.Command, args []string) error {
	userSet := map[string]bool{}
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		userSet[flag.Name] = true
	})

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return fmt.Errorf("unexpected runner argument %q", arg)
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown runner argument %q", arg)
		}
		if !hasValue {
			if flag.NoOptDefVal != "" {
				value = flag.NoOptDefVal
			} else if i+1 < len(args) {
				i++
				value = args[i]
			} else {
				return fmt.Errorf("missing value for runner argument %q", arg)
			}
		}
		if userSet[name] {
			logrus.Debugf("--%s given on the command line, ignoring build default %q", name, value)
			continue
		}
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("invalid runner argument %q: %w", arg, err)
		}
		logrus.Debugf("using build default --%s=%s", name, value)
	}
	return nil
}

// Config returns the runner configuration described by the flags, flashing
// firmware (nil for the build default).
func (f *Flags) Config(firmware *paths.Path) stm32flash.Config {
	return stm32flash.Config{
		Device:            f.Device,
		BaudRate:          f.BaudRate,
		StartAddress:      f.StartAddress,
		ExecutionAddress:  f.ExecutionAddress,
		SerialMode:        f.SerialMode,
		Firmware:          firmware,
		ForceBinaryParser: f.ForceBinaryParser,
		GetInfo:           f.GetInfo,
		Reset:             f.Reset,
		Verify:            f.Verify,
	}
}
