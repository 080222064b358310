// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrIllegalPath is returned by Extract for entries that would be written outside the target directory.
var ErrIllegalPath = errors.New("illegal path in archive")

// Materialize writes this archive's assets, plus its descriptor if one was set, into a zip file
// at dir/Name().  Any existing file at that path is overwritten, so two archives with the same
// name cannot be materialized into the same directory at once.
func (wa *WebArchive) Materialize(dir string) (path string, err error) {
	if err = wa.Validate(); err != nil {
		return
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}

	path = filepath.Join(dir, wa.name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}

		if err != nil {
			os.Remove(path)
			path = ""
		}
	}()

	zw := zip.NewWriter(f)
	for _, p := range wa.Assets() {
		if err = writeEntry(zw, p, wa.assets[p]); err != nil {
			return
		}
	}

	if _, exists := wa.assets[DescriptorPath]; wa.descriptor != nil && !exists {
		var data []byte
		if data, err = json.Marshal(wa.descriptor); err != nil {
			return
		}

		if err = writeEntry(zw, DescriptorPath, data); err != nil {
			return
		}
	}

	err = zw.Close()
	return
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// Extract unpacks the zip file at zipPath into dir, creating dir if necessary.
func Extract(zipPath, dir string) error {
	zr, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if zr != nil {
			zr.Close()
		}

		return fmt.Errorf("%w: %s", ErrIllegalPath, err)
	} else if err != nil {
		return err
	}

	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: %s", ErrIllegalPath, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}

			continue
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}

	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// FromDirectory builds an archive whose assets are the regular files beneath root.
func FromDirectory(name, root string) (*WebArchive, error) {
	wa := New(name)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		wa.AddAsset(filepath.ToSlash(rel), data)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return wa, nil
}
