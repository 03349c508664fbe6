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
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"go.bug.st/downloader/v2"
)

// IsURL reports whether location should be downloaded rather than read
// from the local file system.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches the firmware at firmwareURL into destDir and returns
// the path of the downloaded file. If checksum is not empty the file must
// match it, see VerifyFileChecksum.
func Download(firmwareURL string, destDir *paths.Path, checksum string) (*paths.Path, error) {
	u, err := url.Parse(firmwareURL)
	if err != nil {
		return nil, fmt.Errorf("invalid firmware URL %s: %w", firmwareURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "firmware.bin"
	}
	if err := destDir.MkdirAll(); err != nil {
		return nil, err
	}
	firmwarePath := destDir.Join(name)
	// the downloader resumes partial files, start from an empty one
	if err := firmwarePath.WriteFile(nil); err != nil {
		return nil, err
	}

	logrus.Infof("Downloading firmware from %s", firmwareURL)
	d, err := downloader.Download(firmwarePath.String(), firmwareURL)
	if err != nil {
		return nil, err
	}
	if err := run(d); err != nil {
		return nil, err
	}
	if checksum != "" {
		if err := VerifyFileChecksum(checksum, firmwarePath); err != nil {
			return nil, err
		}
	}
	logrus.Debugf("firmware downloaded in %s", firmwarePath)
	return firmwarePath, nil
}

func run(d *downloader.Downloader) error {
	if d == nil {
		// the file is already downloaded
		return nil
	}
	if err := d.Run(); err != nil {
		return fmt.Errorf("failed to download file from %s: %w", d.URL, err)
	}
	if d.Resp.StatusCode >= 400 && d.Resp.StatusCode <= 599 {
		return fmt.Errorf("failed to download file from %s: %s", d.URL, d.Resp.Status)
	}
	return nil
}

// VerifyFileChecksum checks filePath against checksum, given in the
// "ALGO:hexdigest" form (SHA-256, SHA-1 or MD5).
func VerifyFileChecksum(checksum string, filePath *paths.Path) error {
	split := strings.SplitN(checksum, ":", 2)
	if len(split) != 2 {
		return fmt.Errorf("invalid checksum format: %s", checksum)
	}
	digest, err := hex.DecodeString(split[1])
	if err != nil {
		return fmt.Errorf("invalid hash '%s': %w", split[1], err)
	}

	var algo hash.Hash
	switch strings.ToUpper(split[0]) {
	case "SHA-256":
		algo = sha256.New()
	case "SHA-1":
		algo = sha1.New()
	case "MD5":
		algo = md5.New()
	default:
		return fmt.Errorf("unsupported hash algorithm: %s", split[0])
	}

	file, err := filePath.Open()
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()
	if _, err := io.Copy(algo, file); err != nil {
		return fmt.Errorf("computing hash: %w", err)
	}
	if !bytes.Equal(algo.Sum(nil), digest) {
		return fmt.Errorf("firmware hash differs from %s", checksum)
	}
	return nil
}
