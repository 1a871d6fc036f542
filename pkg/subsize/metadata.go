package subsize

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Fepozopo/subsize/pkg/stdimg"
)

// SizeMeta describes one generated sub-size.
type SizeMeta struct {
	File     string `json:"file"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MimeType string `json:"mime-type"`
	Filesize int64  `json:"filesize"`
}

// Metadata is the attachment record written to the .meta.json sidecar.
// File and the Sizes files are names relative to the source directory.
type Metadata struct {
	Width         int                 `json:"width"`
	Height        int                 `json:"height"`
	File          string              `json:"file"`
	Filesize      int64               `json:"filesize"`
	OriginalImage string              `json:"original_image,omitempty"`
	Sizes         map[string]SizeMeta `json:"sizes"`
	ImageMeta     stdimg.ImageMeta    `json:"image_meta"`
}

// Files lists the distinct files described by m: the attachment file
// followed by the sub-size files in name order.
func (m *Metadata) Files() []string {
	seen := map[string]bool{m.File: true}
	files := []string{m.File}
	names := make([]string, 0, len(m.Sizes))
	for name := range m.Sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := m.Sizes[name].File
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	return files
}

// WriteFile stores m as indented JSON.
func (m *Metadata) WriteFile(path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads a sidecar written by WriteFile.
func ReadMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &m, nil
}
