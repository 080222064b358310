// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DescriptorPath is the location of the deployment descriptor within an archive.
const DescriptorPath = "WEB-INF/web.json"

// Descriptor is the deployment descriptor of a web archive.
type Descriptor struct {
	// DisplayName is a human-readable name for the application.
	DisplayName string `json:"displayName,omitempty"`

	// WelcomeFile is served for requests to the context root.
	WelcomeFile string `json:"welcomeFile,omitempty"`

	// Headers are added to every response of the application.
	Headers map[string]string `json:"headers,omitempty"`
}

// ReadDescriptor loads the descriptor from an extracted archive rooted at dir.
// A missing descriptor is not an error; both return values are nil in that case.
func ReadDescriptor(dir string) (*Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(DescriptorPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	d := new(Descriptor)
	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}

	return d, nil
}
