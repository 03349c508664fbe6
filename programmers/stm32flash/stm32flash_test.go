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
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/arduino/stm32flash-runner/firmware"
	"github.com/arduino/stm32flash-runner/runners"
	"github.com/marcinbor85/gohex"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// fakeTool writes a script standing in for stm32flash. It records its
// arguments, one per line, in the returned file and exits with exitCode.
func fakeTool(t *testing.T, exitCode int) (tool, argsFile *paths.Path) {
	if runtime.GOOS == "windows" {
		t.Skip("the fake stm32flash is a shell script")
	}
	dir := paths.New(t.TempDir())
	argsFile = dir.Join("args.txt")
	tool = dir.Join("stm32flash")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > '%s'\necho stm32flash output\nexit %d\n", argsFile, exitCode)
	require.NoError(t, tool.WriteFile([]byte(script)))
	require.NoError(t, os.Chmod(tool.String(), 0755))
	return tool, argsFile
}

func recordedArgs(t *testing.T, argsFile *paths.Path) []string {
	data, err := argsFile.ReadFile()
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func newTestRunner(tool *paths.Path, build *runners.Config) (*Stm32flash, *test.Hook, *bytes.Buffer) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	out := new(bytes.Buffer)
	s := NewStm32flash(tool.String(), build)
	s.SetLogger(logger)
	s.SetOutput(out, out)
	return s, hook, out
}

func loggedMessages(hook *test.Hook) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestFlash(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)
	fw := paths.New(t.TempDir(), "zephyr.bin")
	require.NoError(t, fw.WriteFile(make([]byte, 4096)))

	cfg, err := NewConfig(Config{
		Device:       "/dev/ttyUSB1",
		BaudRate:     "115200",
		StartAddress: "0x08000000",
		SerialMode:   "8e1",
		Firmware:     fw,
		Verify:       true,
	})
	require.NoError(t, err)

	s, hook, out := newTestRunner(tool, nil)
	res, err := s.Flash(cfg)
	require.NoError(t, err)

	expected := []string{"-b", "115200", "-S", "0x08000000:4096", "-m", "8e1", "-w", fw.String(), "-v", "/dev/ttyUSB1"}
	require.Equal(t, expected, recordedArgs(t, argsFile))
	require.Equal(t, expected, res.Command[1:])
	require.Equal(t, tool.String(), res.Command[0])
	require.Equal(t, int64(4096), res.Size)
	require.Equal(t, fw.String(), res.Firmware)
	require.Contains(t, out.String(), "stm32flash output")

	msgs := loggedMessages(hook)
	require.Contains(t, msgs, "Flashing file: "+fw.String())
	require.Equal(t, "Board flashed successfully.", hook.LastEntry().Message)
}

func TestFlashGetInfo(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)
	// a directory: resolving it as a firmware would fail
	notAFile := paths.New(t.TempDir())

	cfg, err := NewConfig(Config{
		Device:     "/dev/ttyUSB0",
		BaudRate:   "57600",
		SerialMode: "8n1",
		Firmware:   notAFile,
		GetInfo:    true,
		Verify:     true,
	})
	require.NoError(t, err)

	s, hook, _ := newTestRunner(tool, nil)
	res, err := s.Flash(cfg)
	require.NoError(t, err)
	require.True(t, res.GetInfo)
	require.Empty(t, res.Firmware)
	require.Zero(t, res.Size)
	require.Equal(t, []string{"-b", "57600", "-m", "8n1", "/dev/ttyUSB0"}, recordedArgs(t, argsFile))
	msgs := loggedMessages(hook)
	require.NotContains(t, msgs, "Board flashed successfully.")
	require.NotContains(t, msgs, "Flashing file: "+notAFile.String())
}

func writeIntelHex(t *testing.T, file *paths.Path, data []byte) {
	mem := gohex.NewMemory()
	require.NoError(t, mem.AddBinary(0x08000000, data))
	buf := new(bytes.Buffer)
	require.NoError(t, mem.DumpIntelHex(buf, 16))
	require.NoError(t, file.WriteFile(buf.Bytes()))
}

func TestFlashIntelHex(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)
	fw := paths.New(t.TempDir(), "zephyr.hex")
	writeIntelHex(t, fw, make([]byte, 32))
	info, err := fw.Stat()
	require.NoError(t, err)

	cfg, err := NewConfig(Config{Device: "/dev/ttyUSB0", Firmware: fw})
	require.NoError(t, err)

	s, _, _ := newTestRunner(tool, nil)
	res, err := s.Flash(cfg)
	require.NoError(t, err)
	require.Equal(t, info.Size(), res.Size)
	require.Equal(t, fmt.Sprintf("0:%d", info.Size()), recordedArgs(t, argsFile)[3])
}

func TestFlashInvalidIntelHex(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)
	fw := paths.New(t.TempDir(), "zephyr.hex")
	require.NoError(t, fw.WriteFile([]byte("not an intel hex image\n")))

	cfg, err := NewConfig(Config{Device: "/dev/ttyUSB0", Firmware: fw})
	require.NoError(t, err)
	s, _, _ := newTestRunner(tool, nil)
	_, err = s.Flash(cfg)
	require.Error(t, err)
	require.NoFileExists(t, argsFile.String())

	// with the binary parser the content is stm32flash's business
	cfg, err = NewConfig(Config{Device: "/dev/ttyUSB0", Firmware: fw, ForceBinaryParser: true})
	require.NoError(t, err)
	res, err := s.Flash(cfg)
	require.NoError(t, err)
	require.Equal(t, int64(len("not an intel hex image\n")), res.Size)
	require.Contains(t, recordedArgs(t, argsFile), "-f")
}

func TestFlashExternalToolError(t *testing.T) {
	tool, argsFile := fakeTool(t, 1)
	fw := paths.New(t.TempDir(), "zephyr.bin")
	require.NoError(t, fw.WriteFile([]byte{1, 2, 3}))

	cfg, err := NewConfig(Config{Firmware: fw})
	require.NoError(t, err)

	s, hook, _ := newTestRunner(tool, nil)
	res, err := s.Flash(cfg)
	require.Nil(t, res)
	var toolErr *runners.ExternalToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, 1, toolErr.ExitCode)
	require.FileExists(t, argsFile.String())
	require.NotContains(t, loggedMessages(hook), "Board flashed successfully.")
}

func TestFlashArtifactNotFound(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)

	cfg, err := NewConfig(Config{Firmware: paths.New(t.TempDir(), "missing.bin")})
	require.NoError(t, err)

	s, _, _ := newTestRunner(tool, nil)
	_, err = s.Flash(cfg)
	var notFound *firmware.ArtifactNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.NoFileExists(t, argsFile.String(), "stm32flash must not run")

	// a directory is not a firmware either
	cfg.Firmware = paths.New(t.TempDir())
	_, err = s.Flash(cfg)
	require.ErrorAs(t, err, &notFound)
	require.NoFileExists(t, argsFile.String())
}

func TestFlashToolNotFound(t *testing.T) {
	fw := paths.New(t.TempDir(), "zephyr.bin")
	require.NoError(t, fw.WriteFile([]byte{0}))
	cfg, err := NewConfig(Config{Firmware: fw})
	require.NoError(t, err)

	s, _, _ := newTestRunner(paths.New(t.TempDir(), "stm32flash"), nil)
	_, err = s.Flash(cfg)
	var notFound *runners.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestFlashDefaultFirmware(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)
	buildDir := paths.New(t.TempDir())
	zephyrDir := buildDir.Join("zephyr")
	require.NoError(t, zephyrDir.MkdirAll())
	require.NoError(t, zephyrDir.Join("app.bin").WriteFile(make([]byte, 100)))
	require.NoError(t, runners.RunnersYAML(buildDir).WriteFile([]byte("config:\n  bin_file: app.bin\n")))

	build, err := runners.LoadConfig(buildDir)
	require.NoError(t, err)
	cfg, err := NewConfig(Config{Device: "/dev/ttyUSB2"})
	require.NoError(t, err)

	s, _, _ := newTestRunner(tool, build)
	res, err := s.Flash(cfg)
	require.NoError(t, err)
	require.Equal(t, int64(100), res.Size)
	args := recordedArgs(t, argsFile)
	require.Equal(t, "0:100", args[3])
	require.Equal(t, zephyrDir.Join("app.bin").String(), args[7])
}

func TestFlashDryRun(t *testing.T) {
	fw := paths.New(t.TempDir(), "zephyr.bin")
	require.NoError(t, fw.WriteFile(make([]byte, 64)))
	cfg, err := NewConfig(Config{Device: "/dev/ttyUSB0", Firmware: fw, Reset: true})
	require.NoError(t, err)

	s, hook, out := newTestRunner(paths.New("stm32flash-not-installed"), nil)
	s.SetDryRun(true)
	res, err := s.Flash(cfg)
	require.NoError(t, err)
	require.True(t, res.DryRun)
	require.Equal(t, []string{"stm32flash-not-installed", "-b", "57600", "-S", "0:64", "-m", "8e1", "-w", fw.String(), "-R", "/dev/ttyUSB0"}, res.Command)
	require.Empty(t, out.String())
	require.NotContains(t, loggedMessages(hook), "Board flashed successfully.")
}

func TestFlashDefaultFirmwareIntelHex(t *testing.T) {
	tool, argsFile := fakeTool(t, 0)
	buildDir := paths.New(t.TempDir())
	zephyrDir := buildDir.Join("zephyr")
	require.NoError(t, zephyrDir.MkdirAll())
	hex := zephyrDir.Join("app.hex")
	writeIntelHex(t, hex, make([]byte, 16))
	require.NoError(t, runners.RunnersYAML(buildDir).WriteFile([]byte("config:\n  hex_file: app.hex\n")))

	build, err := runners.LoadConfig(buildDir)
	require.NoError(t, err)
	cfg, err := NewConfig(Config{Device: "/dev/ttyUSB0"})
	require.NoError(t, err)

	s, _, _ := newTestRunner(tool, build)
	res, err := s.Flash(cfg)
	require.NoError(t, err)
	require.Equal(t, hex.String(), res.Firmware)
	require.Equal(t, hex.String(), recordedArgs(t, argsFile)[7])
}
