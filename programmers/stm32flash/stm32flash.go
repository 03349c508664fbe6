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
	"io"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/arduino/stm32flash-runner/firmware"
	"github.com/arduino/stm32flash-runner/runners"
	"github.com/sirupsen/logrus"
)

// Name is the runner name, as used in runners.yaml.
const Name = "stm32flash"

// Stm32flash flashes STM32 targets through their serial bootloader by
// running the stm32flash program.
type Stm32flash struct {
	tool   string
	build  *runners.Config
	stdout io.Writer
	stderr io.Writer
	log    logrus.FieldLogger
	dryRun bool
}

// NewStm32flash returns a runner invoking tool (a program name looked up in
// the PATH, or a path to it). build provides the default firmware and may
// be nil.
func NewStm32flash(tool string, build *runners.Config) *Stm32flash {
	if tool == "" {
		tool = Name
	}
	return &Stm32flash{
		tool:   tool,
		build:  build,
		stdout: os.Stdout,
		stderr: os.Stderr,
		log:    logrus.StandardLogger(),
	}
}

// SetOutput sets where the output of stm32flash is copied to.
func (s *Stm32flash) SetOutput(stdout, stderr io.Writer) {
	s.stdout = stdout
	s.stderr = stderr
}

// SetLogger replaces the logger, logrus.StandardLogger() by default.
func (s *Stm32flash) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// SetDryRun makes Flash compute the command without running it.
func (s *Stm32flash) SetDryRun(dryRun bool) {
	s.dryRun = dryRun
}

// FlashResult describes a completed invocation.
type FlashResult struct {
	Device   string      `json:"device"`
	Firmware string      `json:"firmware,omitempty"`
	Size     int64       `json:"size,omitempty"`
	Command  []string    `json:"command"`
	GetInfo  bool        `json:"get_info,omitempty"`
	DryRun   bool        `json:"dry_run,omitempty"`
	Output   *ExecOutput `json:"output,omitempty"`
}

// ExecOutput is the captured output of stm32flash.
type ExecOutput struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (r *FlashResult) String() string {
	if r.DryRun {
		return runners.QuoteCommand(r.Command)
	}
	if r.GetInfo {
		return fmt.Sprintf("Read device information from %s", r.Device)
	}
	return fmt.Sprintf("Flashed %s (%d bytes) to %s", r.Firmware, r.Size, r.Device)
}

// Data implements feedback.Result interface
func (r *FlashResult) Data() interface{} {
	return r
}

// Flash runs stm32flash as described by cfg. With cfg.GetInfo set only the
// device information is printed and the firmware is left alone.
func (s *Stm32flash) Flash(cfg Config) (*FlashResult, error) {
	toolPath, err := s.require()
	if err != nil {
		return nil, err
	}

	if cfg.GetInfo {
		res := &FlashResult{
			Device:  cfg.Device,
			Command: s.command(cfg.InfoArgs()),
			GetInfo: true,
		}
		if err := s.call(toolPath, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	fw := cfg.Firmware
	if fw == nil && s.build != nil {
		fw = s.build.Firmware()
	}
	fw, err = firmware.Resolve(fw)
	if err != nil {
		return nil, err
	}
	if firmware.IsIntelHex(fw) && !cfg.ForceBinaryParser {
		if err := firmware.CheckIntelHex(fw); err != nil {
			return nil, err
		}
	}
	size, err := firmware.Size(fw)
	if err != nil {
		return nil, err
	}

	res := &FlashResult{
		Device:   cfg.Device,
		Firmware: fw.String(),
		Size:     size,
		Command:  s.command(cfg.WriteArgs(fw, size)),
	}
	s.log.Infof("Flashing file: %s", fw)
	if err := s.call(toolPath, res); err != nil {
		return nil, err
	}
	if !s.dryRun {
		s.log.Info("Board flashed successfully.")
	}
	return res, nil
}

func (s *Stm32flash) require() (*paths.Path, error) {
	toolPath, err := runners.Require(s.tool)
	if err != nil && s.dryRun {
		s.log.Warnf("%s not found, continuing since this is a dry run", s.tool)
		return paths.New(s.tool), nil
	}
	return toolPath, err
}

func (s *Stm32flash) command(args []string) []string {
	return append([]string{s.tool}, args...)
}

func (s *Stm32flash) call(toolPath *paths.Path, res *FlashResult) error {
	if s.dryRun {
		res.DryRun = true
		s.log.Infof("Dry run: %s", runners.QuoteCommand(res.Command))
		return nil
	}
	s.log.Debugf("running: %s", strings.Join(res.Command, " "))
	return runners.CheckCall(toolPath, res.Command[1:], s.stdout, s.stderr)
}
