package templates

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Templates []yamlTemplate `yaml:"templates"`
}

type yamlTemplate struct {
	Template `yaml:",inline"`
	Active   *bool `yaml:"is_active"`
}

// LoadYAML reads a document of the form
//
//	templates:
//	  - id: t1
//	    name: Absence notice
//	    type: attendance
//	    subject: "{{studentName}} was absent"
//	    body: "Dear parent, {{studentName}} was absent today."
//	    variables:
//	      studentName: Student first name
//
// into a new MemoryStore. Templates are active unless is_active is false.
func LoadYAML(r io.Reader) (*MemoryStore, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidTemplate, err)
	}

	store, _ := NewMemoryStore()
	for i, yt := range doc.Templates {
		t := yt.Template
		t.IsActive = yt.Active == nil || *yt.Active
		if err := store.Put(t); err != nil {
			return nil, fmt.Errorf("template #%d: %w", i, err)
		}
	}
	return store, nil
}

// LoadFile is LoadYAML over a file path.
func LoadFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrTemplateStore, err)
	}
	defer f.Close()
	return LoadYAML(f)
}
