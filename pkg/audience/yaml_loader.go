package audience

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlDirectory struct {
	Roles  map[string][]string `yaml:"roles"`
	Groups map[string][]string `yaml:"groups"`
}

// LoadYAML reads a directory snapshot of the form
//
//	roles:
//	  teacher: [t-1, t-2]
//	groups:
//	  grade-5b: [s-10, s-11, p-10]
//
// into a new MemoryDirectory.
func LoadYAML(r io.Reader) (*MemoryDirectory, error) {
	var doc yamlDirectory
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrDirectoryLookup, err)
	}

	d := NewMemoryDirectory()
	for role, ids := range doc.Roles {
		d.SetRole(role, ids...)
	}
	for group, ids := range doc.Groups {
		d.SetGroup(group, ids...)
	}
	return d, nil
}

// LoadFile is LoadYAML over a file path.
func LoadFile(path string) (*MemoryDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrDirectoryLookup, err)
	}
	defer f.Close()
	return LoadYAML(f)
}
