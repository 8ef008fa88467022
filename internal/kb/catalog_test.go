package kb

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultCatalogsContents(t *testing.T) {
	cat := DefaultCatalogs()

	wantProducts := []string{
		"V_AIRY_SHAMPOO", "V_CALM_ESSENCE", "V_CALM_SHAMPOO", "V_GOLD_COND",
		"V_PURIFY_DEW", "V_REVITALIZE_ESSENCE", "V_REVITALIZE_SHAMPOO",
	}
	if got := cat.ProductIDs(); !reflect.DeepEqual(got, wantProducts) {
		t.Fatalf("ProductIDs() = %v, want %v", got, wantProducts)
	}

	wantCourses := []string{"COURSE_CALM_SPA", "COURSE_DETOX_SCALP", "COURSE_LASER_GROW", "COURSE_O2_PURIFY"}
	if got := cat.CourseIDs(); !reflect.DeepEqual(got, wantCourses) {
		t.Fatalf("CourseIDs() = %v, want %v", got, wantCourses)
	}

	for _, key := range []string{LifestyleSensitive, LifestyleOily, LifestyleThinning, LifestyleGeneral} {
		if len(cat.Tips(key)) == 0 {
			t.Fatalf("expected tips for %s", key)
		}
	}
}

// Every ID referenced by a composition table must resolve in the bundled catalogs.
func TestCompositionTablesResolve(t *testing.T) {
	cat := DefaultCatalogs()
	bundles := append([]productBundle{defaultProductBundle}, productPriority...)
	for _, b := range bundles {
		for _, id := range b.ids {
			if _, ok := cat.Product(id); !ok {
				t.Fatalf("product %s missing from catalogs", id)
			}
		}
	}
	courses := []string{defaultCourse}
	for _, step := range treatmentChain {
		courses = append(courses, step.course)
	}
	for _, id := range courses {
		if _, ok := cat.Course(id); !ok {
			t.Fatalf("course %s missing from catalogs", id)
		}
	}
}

func TestLoadCatalogs(t *testing.T) {
	doc := `
products:
  P1:
    name: one
    efficacy: e
    usage: u
courses:
  C1:
    name: course
    description: d
    duration: 10 min
lifestyle:
  GENERAL:
    - sleep
`
	cat, err := LoadCatalogs(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadCatalogs: %v", err)
	}
	if p, ok := cat.Product("P1"); !ok || p.Name != "one" {
		t.Fatalf("expected product P1, got %+v ok=%v", p, ok)
	}
	if c, ok := cat.Course("C1"); !ok || c.Duration != "10 min" {
		t.Fatalf("expected course C1, got %+v ok=%v", c, ok)
	}
	if got := cat.Tips(LifestyleGeneral); !reflect.DeepEqual(got, []string{"sleep"}) {
		t.Fatalf("unexpected tips %v", got)
	}
}

func TestLoadCatalogsErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		empty bool
	}{
		{name: "empty document", doc: "", empty: true},
		{name: "no entries", doc: "products: {}\n", empty: true},
		{name: "unknown field", doc: "products:\n  P1:\n    name: x\n    price: 10\n"},
		{name: "malformed yaml", doc: "products: [\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalogs(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.empty != errors.Is(err, ErrEmptyCatalog) {
				t.Fatalf("errors.Is(ErrEmptyCatalog) = %v, want %v (err=%v)", !tt.empty, tt.empty, err)
			}
		})
	}
}

func TestCatalogAccessorsReturnCopies(t *testing.T) {
	cat := DefaultCatalogs()

	tips := cat.Tips(LifestyleGeneral)
	tips[0] = "mutated"
	if cat.Tips(LifestyleGeneral)[0] == "mutated" {
		t.Fatalf("Tips leaked internal slice")
	}

	data := cat.Data()
	data.Products["V_NEW"] = Product{Name: "new"}
	data.Lifestyle[LifestyleGeneral][0] = "mutated"
	if _, ok := cat.Product("V_NEW"); ok {
		t.Fatalf("Data leaked internal products map")
	}
	if cat.Tips(LifestyleGeneral)[0] == "mutated" {
		t.Fatalf("Data leaked internal lifestyle slice")
	}
}

func TestNewCatalogsCopiesInput(t *testing.T) {
	data := CatalogData{Lifestyle: map[string][]string{LifestyleGeneral: {"a"}}}
	cat := NewCatalogs(data)
	data.Lifestyle[LifestyleGeneral][0] = "b"
	if got := cat.Tips(LifestyleGeneral); got[0] != "a" {
		t.Fatalf("expected copy, got %v", got)
	}
}

func TestNilCatalogsAreSafe(t *testing.T) {
	var cat *Catalogs
	if _, ok := cat.Product("V_GOLD_COND"); ok {
		t.Fatalf("expected miss on nil catalogs")
	}
	if cat.Tips(LifestyleGeneral) != nil {
		t.Fatalf("expected nil tips")
	}
	if len(cat.Data().Products) != 0 {
		t.Fatalf("expected empty data")
	}
}
