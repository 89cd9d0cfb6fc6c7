// Package contextfile loads render contexts from JSON, YAML and HCL documents.
//
// Key order from the source document is preserved, so the order of
// AvailablePaths and of map values formatted into output follows the file.
package contextfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

// Format identifies a context document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// ErrUnsupportedFormat is returned for unknown formats and file extensions.
var ErrUnsupportedFormat = errors.New("unsupported context format")

// ParseFormat maps a format name to a Format. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Load reads path and decodes it according to its extension.
func Load(path string) (docforge.Context, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return docforge.Context{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return docforge.Context{}, fmt.Errorf("failed to read context file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes data as a context document. The top level must be an
// object, mapping or attribute body. filename is used in error messages.
func Parse(data []byte, format Format, filename string) (docforge.Context, error) {
	var (
		m   *docforge.Map
		err error
	)
	switch format {
	case FormatJSON:
		m, err = decodeJSON(data)
	case FormatYAML:
		m, err = decodeYAML(data)
	case FormatHCL:
		m, err = decodeHCL(data, filename)
	default:
		return docforge.Context{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return docforge.Context{}, fmt.Errorf("failed to decode %s context %s: %w", format, filename, err)
	}
	return docforge.ContextFromMap(m), nil
}
