package meta

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Load decodes a YAML mapping document.
func Load(r io.Reader) (*DataMap, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m DataMap
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty mapping document", ErrInvalidMapping)
		}
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}
	for _, t := range m.DbEntities {
		for _, a := range t.Attributes {
			a.Type = ParseType(string(a.Type))
		}
	}
	return &m, nil
}

// LoadFile reads a mapping document from fs.
func LoadFile(fs afero.Fs, path string) (*DataMap, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}
	m, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadResolver loads each file and builds a resolver over all of them.
func LoadResolver(fs afero.Fs, paths ...string) (*EntityResolver, error) {
	maps := make([]*DataMap, 0, len(paths))
	for _, p := range paths {
		m, err := LoadFile(fs, p)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return NewEntityResolver(maps...)
}

// Marshal encodes a DataMap back to YAML.
func Marshal(m *DataMap) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
