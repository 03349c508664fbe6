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

package flash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arduino/go-paths-helper"
	"github.com/arduino/stm32flash-runner/cli/arguments"
	"github.com/arduino/stm32flash-runner/cli/feedback"
	"github.com/arduino/stm32flash-runner/firmware"
	"github.com/arduino/stm32flash-runner/programmers/stm32flash"
	"github.com/arduino/stm32flash-runner/runners"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var flags arguments.Flags

// NewCommand creates a new `flash` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "flash",
		Short: "Flashes a firmware with stm32flash.",
		Long:  "Flashes the firmware of the build, or the one given with --firmware, through the serial bootloader of an STM32 device.",
		Example: "" +
			"  " + os.Args[0] + " flash -d build\n" +
			"  " + os.Args[0] + " flash --device /dev/ttyUSB1 --baud-rate 115200 --start-address 0x08000000 --execution-addr auto --verify\n" +
			"  " + os.Args[0] + " flash --get-info --serial-mode 8n1\n" +
			"  " + os.Args[0] + " flash --firmware https://example.com/zephyr.bin --firmware-checksum SHA-256:<digest>\n",
		Args: cobra.NoArgs,
		Run:  runFlash,
	}
	flags.AddToCommand(command)
	return command
}

func runFlash(cmd *cobra.Command, args []string) {
	res, err := flash(cmd)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error during flashing: %s", err), exitCode(err))
	}
	feedback.PrintResult(res)
}

// buildConfigError marks errors reading the build directory.
type buildConfigError struct {
	err error
}

func (e *buildConfigError) Error() string { return e.err.Error() }
func (e *buildConfigError) Unwrap() error { return e.err }

// downloadError marks errors fetching a remote firmware.
type downloadError struct {
	err error
}

func (e *downloadError) Error() string { return e.err.Error() }
func (e *downloadError) Unwrap() error { return e.err }

func exitCode(err error) feedback.ExitCode {
	var cfgErr *stm32flash.ConfigurationError
	var buildErr *buildConfigError
	var dlErr *downloadError
	switch {
	case errors.As(err, &cfgErr):
		return feedback.ErrBadArgument
	case errors.As(err, &buildErr):
		return feedback.ErrBuildConfig
	case errors.As(err, &dlErr):
		return feedback.ErrNetwork
	default:
		return feedback.ErrGeneric
	}
}

func flash(cmd *cobra.Command) (*stm32flash.FlashResult, error) {
	buildDir := paths.New(flags.BuildDir)
	build, err := runners.LoadConfig(buildDir)
	if err != nil {
		return nil, &buildConfigError{err}
	}
	if !build.Supports(stm32flash.Name) {
		feedback.Warning(fmt.Sprintf("Warning: the build in %s doesn't list %s among its runners", buildDir, stm32flash.Name))
	}
	if err := flags.ApplyRunnerArgs(cmd, build.RunnerArgs(stm32flash.Name)); err != nil {
		return nil, &buildConfigError{err}
	}

	// check the options before downloading anything
	if _, err := stm32flash.NewConfig(flags.Config(nil)); err != nil {
		return nil, err
	}

	var fw *paths.Path
	if !flags.GetInfo {
		if fw, err = firmwareToFlash(build); err != nil {
			return nil, err
		}
		if firmware.IsURL(flags.Firmware) {
			defer fw.Parent().RemoveAll()
		}
	}

	cfg, err := stm32flash.NewConfig(flags.Config(fw))
	if err != nil {
		return nil, err
	}
	logrus.Debugf("device: %s, baud rate: %s, start address: %s", cfg.Device, cfg.BaudRate, cfg.StartAddress)

	runner := stm32flash.NewStm32flash(flags.Tool, build)
	runner.SetDryRun(flags.DryRun)

	var stdout, stderr io.Writer = os.Stdout, os.Stderr
	var outBuf, errBuf *bytes.Buffer
	if feedback.GetFormat() == feedback.JSON {
		outBuf, errBuf = new(bytes.Buffer), new(bytes.Buffer)
		stdout, stderr = outBuf, errBuf
	}
	runner.SetOutput(stdout, stderr)

	res, err := runner.Flash(cfg)
	if err != nil {
		return nil, err
	}
	if outBuf != nil && !res.DryRun {
		res.Output = &stm32flash.ExecOutput{
			Stdout: outBuf.String(),
			Stderr: errBuf.String(),
		}
	}
	return res, nil
}

// firmwareToFlash returns the firmware given with --firmware, downloading
// it if needed, or nil to let the runner pick the build's default. With
// --firmware-checksum the chosen file, the build's one included, is
// verified here.
func firmwareToFlash(build *runners.Config) (*paths.Path, error) {
	if firmware.IsURL(flags.Firmware) {
		tmp, err := paths.MkTempDir("", "stm32flash-runner")
		if err != nil {
			return nil, err
		}
		fw, err := firmware.Download(flags.Firmware, tmp, flags.FirmwareChecksum)
		if err != nil {
			tmp.RemoveAll()
			return nil, &downloadError{err}
		}
		return fw, nil
	}

	var fw *paths.Path
	if flags.Firmware != "" {
		fw = paths.New(flags.Firmware)
	}
	if flags.FirmwareChecksum == "" {
		return fw, nil
	}
	if fw == nil {
		fw = build.Firmware()
	}
	fw, err := firmware.Resolve(fw)
	if err != nil {
		return nil, err
	}
	if err := firmware.VerifyFileChecksum(flags.FirmwareChecksum, fw); err != nil {
		return nil, err
	}
	return fw, nil
}
