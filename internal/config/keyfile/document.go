package keyfile

import "slices"

// Section is a named, ordered group of variables.
type Section struct {
	name   string
	keys   []string
	values map[string]string
}

func newSection(name string) *Section {
	return &Section{name: name, values: make(map[string]string)}
}

// Name returns the section name ("" for the default section).
func (s *Section) Name() string {
	return s.name
}

// Get returns the value of key.
func (s *Section) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set inserts or overwrites key. An overwritten key keeps its position.
// It returns the previous value and whether there was one.
func (s *Section) Set(key, value string) (string, bool) {
	old, existed := s.values[key]
	if !existed {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return old, existed
}

// Delete removes key and returns its former value.
func (s *Section) Delete(key string) (string, bool) {
	old, ok := s.values[key]
	if !ok {
		return "", false
	}
	delete(s.values, key)
	if i := slices.Index(s.keys, key); i >= 0 {
		s.keys = slices.Delete(s.keys, i, i+1)
	}
	return old, true
}

// Keys returns the keys in insertion order.
func (s *Section) Keys() []string {
	return slices.Clone(s.keys)
}

// Len returns the number of keys.
func (s *Section) Len() int {
	return len(s.keys)
}

// Document is an ordered set of sections.
type Document struct {
	sections []*Section
	index    map[string]*Section
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{index: make(map[string]*Section)}
}

// Section returns the named section, creating it at the end if absent.
func (d *Document) Section(name string) *Section {
	if s, ok := d.index[name]; ok {
		return s
	}
	s := newSection(name)
	d.sections = append(d.sections, s)
	d.index[name] = s
	return s
}

// Lookup returns the named section without creating it.
func (d *Document) Lookup(name string) (*Section, bool) {
	s, ok := d.index[name]
	return s, ok
}

// Remove deletes the named section and reports whether it existed.
func (d *Document) Remove(name string) bool {
	s, ok := d.index[name]
	if !ok {
		return false
	}
	delete(d.index, name)
	if i := slices.Index(d.sections, s); i >= 0 {
		d.sections = slices.Delete(d.sections, i, i+1)
	}
	return true
}

// Sections returns the sections in insertion order.
func (d *Document) Sections() []*Section {
	return slices.Clone(d.sections)
}

// Len returns the number of variables across all sections.
func (d *Document) Len() int {
	n := 0
	for _, s := range d.sections {
		n += s.Len()
	}
	return n
}

// Get returns the value of key in section.
func (d *Document) Get(section, key string) (string, bool) {
	s, ok := d.index[section]
	if !ok {
		return "", false
	}
	return s.Get(key)
}

// Set inserts or overwrites key in section, creating the section.
func (d *Document) Set(section, key, value string) {
	d.Section(section).Set(key, value)
}

// Equal reports whether both documents hold the same sections and values,
// ignoring order. An empty default section is not written by Encode and
// counts as absent.
func (d *Document) Equal(other *Document) bool {
	if d.countSections() != other.countSections() {
		return false
	}
	for _, s := range d.sections {
		if s.name == "" && s.Len() == 0 {
			continue
		}
		o, ok := other.index[s.name]
		if !ok || o.Len() != s.Len() {
			return false
		}
		for k, v := range s.values {
			if ov, ok := o.values[k]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}

func (d *Document) countSections() int {
	n := len(d.sections)
	if s, ok := d.index[""]; ok && s.Len() == 0 {
		n--
	}
	return n
}

// Map returns a copy of the document as nested maps.
func (d *Document) Map() map[string]map[string]string {
	m := make(map[string]map[string]string, len(d.sections))
	for _, s := range d.sections {
		vars := make(map[string]string, len(s.values))
		for k, v := range s.values {
			vars[k] = v
		}
		m[s.name] = vars
	}
	return m
}
