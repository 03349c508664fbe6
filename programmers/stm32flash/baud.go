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
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/exp/slices"
)

// BaudRates are the serial speeds accepted by stm32flash.
var BaudRates = []string{
	"1200", "1800", "2400", "4800", "9600", "19200",
	"38400", "57600", "115200", "230400", "256000", "460800",
	"500000", "576000", "921600", "1000000", "1500000", "2000000",
}

// DefaultBaudRate is used when no baud rate is given.
const DefaultBaudRate BaudRate = "57600"

// BaudRate is a serial speed restricted to BaudRates. It implements
// pflag.Value so an invalid value is rejected while parsing flags.
type BaudRate string

var _ pflag.Value = (*BaudRate)(nil)

// ParseBaudRate returns s as a BaudRate, or an error if s is not one of
// the supported speeds.
func ParseBaudRate(s string) (BaudRate, error) {
	if !slices.Contains(BaudRates, s) {
		return "", fmt.Errorf("invalid baud rate %q, must be one of: %s", s, strings.Join(BaudRates, ", "))
	}
	return BaudRate(s), nil
}

func (b *BaudRate) String() string {
	return string(*b)
}

// Set implements pflag.Value.
func (b *BaudRate) Set(s string) error {
	rate, err := ParseBaudRate(s)
	if err != nil {
		return err
	}
	*b = rate
	return nil
}

// Type implements pflag.Value.
func (b *BaudRate) Type() string {
	return "baud"
}
