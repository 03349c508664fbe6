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

package firmware

import (
	"fmt"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/marcinbor85/gohex"
)

// ArtifactNotFoundError is returned when the firmware file to flash is
// missing or can't be read.
type ArtifactNotFoundError struct {
	Path *paths.Path
	Err  error
}

func (e *ArtifactNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("firmware file %s not found: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("firmware file %s not found", e.Path)
}

func (e *ArtifactNotFoundError) Unwrap() error {
	return e.Err
}

// Resolve checks that file is a readable regular file and returns its
// absolute path.
func Resolve(file *paths.Path) (*paths.Path, error) {
	if file == nil {
		return nil, &ArtifactNotFoundError{Path: paths.New("<unset>")}
	}
	abs := file.Clone()
	if err := abs.ToAbs(); err != nil {
		return nil, &ArtifactNotFoundError{Path: file, Err: err}
	}
	info, err := abs.Stat()
	if err != nil {
		return nil, &ArtifactNotFoundError{Path: abs, Err: err}
	}
	if info.IsDir() {
		return nil, &ArtifactNotFoundError{Path: abs, Err: fmt.Errorf("is a directory")}
	}
	f, err := abs.Open()
	if err != nil {
		return nil, &ArtifactNotFoundError{Path: abs, Err: err}
	}
	f.Close()
	return abs, nil
}

// IsIntelHex reports whether file looks like an Intel HEX image.
func IsIntelHex(file *paths.Path) bool {
	return strings.EqualFold(file.Ext(), ".hex")
}

// Size returns the length in bytes of file, the amount of flash stm32flash
// is told to write.
func Size(file *paths.Path) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, &ArtifactNotFoundError{Path: file, Err: err}
	}
	return info.Size(), nil
}

// CheckIntelHex makes sure file parses as an Intel HEX image and holds
// some data.
func CheckIntelHex(file *paths.Path) error {
	f, err := file.Open()
	if err != nil {
		return &ArtifactNotFoundError{Path: file, Err: err}
	}
	defer f.Close()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return fmt.Errorf("invalid Intel HEX file %s: %w", file, err)
	}
	if len(mem.GetDataSegments()) == 0 {
		return fmt.Errorf("invalid Intel HEX file %s: no data records", file)
	}
	return nil
}
