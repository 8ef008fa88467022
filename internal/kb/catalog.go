package kb

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Lifestyle catalog keys.
const (
	LifestyleSensitive = "SENSITIVE"
	LifestyleOily      = "OILY"
	LifestyleThinning  = "THINNING"
	LifestyleGeneral   = "GENERAL"
)

//go:embed catalogs.yaml
var defaultCatalogYAML []byte

// Product is a home-care product entry.
type Product struct {
	Name     string `json:"name" yaml:"name"`
	Efficacy string `json:"efficacy" yaml:"efficacy"`
	Usage    string `json:"usage" yaml:"usage"`
}

// Course is an in-clinic treatment entry.
type Course struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Duration    string `json:"duration" yaml:"duration"`
}

// CatalogData is the serialised shape of the catalogs.
type CatalogData struct {
	Products  map[string]Product  `json:"products" yaml:"products"`
	Courses   map[string]Course   `json:"courses" yaml:"courses"`
	Lifestyle map[string][]string `json:"lifestyle" yaml:"lifestyle"`
}

// Catalogs is an immutable set of reference tables. Accessors return copies.
type Catalogs struct {
	products  map[string]Product
	courses   map[string]Course
	lifestyle map[string][]string
}

// ErrEmptyCatalog is returned when a catalog document defines no entries at all.
var ErrEmptyCatalog = errors.New("catalog is empty")

var (
	defaultOnce     sync.Once
	defaultCatalogs *Catalogs
)

// DefaultCatalogs returns the catalogs bundled with the engine.
func DefaultCatalogs() *Catalogs {
	defaultOnce.Do(func() {
		c, err := LoadCatalogs(bytes.NewReader(defaultCatalogYAML))
		if err != nil {
			panic(fmt.Sprintf("kb: embedded catalogs invalid: %v", err))
		}
		defaultCatalogs = c
	})
	return defaultCatalogs
}

// LoadCatalogs parses a YAML catalog document.
func LoadCatalogs(r io.Reader) (*Catalogs, error) {
	var data CatalogData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("decode catalogs: %w", err)
	}
	if len(data.Products) == 0 && len(data.Courses) == 0 && len(data.Lifestyle) == 0 {
		return nil, ErrEmptyCatalog
	}
	return NewCatalogs(data), nil
}

// NewCatalogs builds immutable catalogs from data. The input is copied.
func NewCatalogs(data CatalogData) *Catalogs {
	c := &Catalogs{
		products:  make(map[string]Product, len(data.Products)),
		courses:   make(map[string]Course, len(data.Courses)),
		lifestyle: make(map[string][]string, len(data.Lifestyle)),
	}
	for id, p := range data.Products {
		c.products[strings.TrimSpace(id)] = p
	}
	for id, course := range data.Courses {
		c.courses[strings.TrimSpace(id)] = course
	}
	for key, tips := range data.Lifestyle {
		c.lifestyle[strings.TrimSpace(key)] = append([]string(nil), tips...)
	}
	return c
}

// Product looks up a product by ID.
func (c *Catalogs) Product(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.products[id]
	return p, ok
}

// Course looks up a treatment course by ID.
func (c *Catalogs) Course(id string) (Course, bool) {
	if c == nil {
		return Course{}, false
	}
	course, ok := c.courses[id]
	return course, ok
}

// Tips returns a copy of the lifestyle tips for a category key.
func (c *Catalogs) Tips(key string) []string {
	if c == nil {
		return nil
	}
	tips, ok := c.lifestyle[key]
	if !ok {
		return nil
	}
	return append([]string(nil), tips...)
}

// Data returns a deep copy of the catalogs in their serialised shape.
func (c *Catalogs) Data() CatalogData {
	out := CatalogData{
		Products:  map[string]Product{},
		Courses:   map[string]Course{},
		Lifestyle: map[string][]string{},
	}
	if c == nil {
		return out
	}
	for id, p := range c.products {
		out.Products[id] = p
	}
	for id, course := range c.courses {
		out.Courses[id] = course
	}
	for key, tips := range c.lifestyle {
		out.Lifestyle[key] = append([]string(nil), tips...)
	}
	return out
}

// ProductIDs returns all product IDs in sorted order.
func (c *Catalogs) ProductIDs() []string {
	if c == nil {
		return nil
	}
	return sortedKeys(c.products)
}

// CourseIDs returns all course IDs in sorted order.
func (c *Catalogs) CourseIDs() []string {
	if c == nil {
		return nil
	}
	return sortedKeys(c.courses)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
