// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"encoding/json"
	"fmt"

	digest "github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// Info is the decoded output of `buildah inspect`, for both containers and
// images. Only the members this package relies on are typed; the complete
// document is kept in Raw.
type Info struct {
	Type            string        `json:"Type"`
	FromImage       string        `json:"FromImage"`
	FromImageID     string        `json:"FromImageID"`
	FromImageDigest digest.Digest `json:"FromImageDigest"`
	Config          string        `json:"Config"`
	Manifest        string        `json:"Manifest"`
	Container       string        `json:"Container"`
	ContainerID     string        `json:"ContainerID"`
	MountPoint      string        `json:"MountPoint"`
	OCIv1           v1.Image      `json:"OCIv1"`

	Raw json.RawMessage `json:"-"`
}

// ParsedConfig decodes the nested configuration document.
func (i *Info) ParsedConfig() (Config, error) {
	return parseConfigString(i.Config)
}

func decodeInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode inspect output: %w", err)
	}
	info.Raw = json.RawMessage(data)
	return &info, nil
}
