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
	"fmt"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Config describes the artifacts of a build, as written by the build
// system in <build-dir>/zephyr/runners.yaml.
type Config struct {
	FlashRunner string              `yaml:"flash-runner"`
	Runners     []string            `yaml:"runners"`
	Artifacts   Artifacts           `yaml:"config"`
	Args        map[string][]string `yaml:"args"`

	// dir is the directory relative paths in Artifacts are resolved against
	dir *paths.Path
}

// Artifacts lists the output files produced by the build.
type Artifacts struct {
	HexFile string `yaml:"hex_file"`
	BinFile string `yaml:"bin_file"`
}

// RunnersYAML returns the path where the build system writes runners.yaml
// inside buildDir.
func RunnersYAML(buildDir *paths.Path) *paths.Path {
	return buildDir.Join("zephyr", "runners.yaml")
}

// LoadConfig reads the runners.yaml found in buildDir. A build directory
// without runners.yaml yields a Config pointing to the default artifact
// names, so callers can always ask it for a binary.
func LoadConfig(buildDir *paths.Path) (*Config, error) {
	yamlPath := RunnersYAML(buildDir)
	if !yamlPath.Exist() {
		logrus.Debugf("%s not found, using default build artifacts", yamlPath)
		return &Config{
			Artifacts: Artifacts{
				HexFile: "zephyr.hex",
				BinFile: "zephyr.bin",
			},
			dir: yamlPath.Parent(),
		}, nil
	}

	data, err := yamlPath.ReadFile()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
	}
	cfg := &Config{dir: yamlPath.Parent()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
	}
	logrus.Debugf("loaded %s (flash runner: %s)", yamlPath, cfg.FlashRunner)
	return cfg, nil
}

func (c *Config) resolve(file string) *paths.Path {
	if file == "" {
		return nil
	}
	p := paths.New(file)
	if p.IsAbs() {
		return p
	}
	return c.dir.JoinPath(p)
}

// BinFile returns the path of the raw binary produced by the build, or nil
// if the build doesn't produce one.
func (c *Config) BinFile() *paths.Path {
	return c.resolve(c.Artifacts.BinFile)
}

// HexFile returns the path of the Intel HEX image produced by the build.
func (c *Config) HexFile() *paths.Path {
	return c.resolve(c.Artifacts.HexFile)
}

// Firmware returns the artifact to flash by default: the raw binary, or
// the Intel HEX image for builds that don't produce one. It is nil when
// the build lists neither.
func (c *Config) Firmware() *paths.Path {
	if bin := c.BinFile(); bin != nil {
		return bin
	}
	return c.HexFile()
}

// RunnerArgs returns the default arguments recorded for the named runner.
func (c *Config) RunnerArgs(runner string) []string {
	return c.Args[runner]
}

// Supports reports whether the build lists runner among the usable runners.
// A build that lists no runners at all supports every runner.
func (c *Config) Supports(runner string) bool {
	if len(c.Runners) == 0 {
		return true
	}
	return slices.Contains(c.Runners, runner)
}
