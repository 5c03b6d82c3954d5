package pages

import (
	"fmt"
	"testing"

	"github.com/wadansyaku/band-part-key-app/core"
)

// mockResolver is a mock ObjectResolver for testing
type mockResolver struct {
	objects map[int]core.Object
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		objects: make(map[int]core.Object),
	}
}

func (m *mockResolver) AddObject(num int, obj core.Object) {
	m.objects[num] = obj
}

func (m *mockResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return m.ResolveReference(ref)
	}
	return obj, nil
}

func (m *mockResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return m.Resolve(obj)
}

func (m *mockResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return obj, nil
}

func TestCatalogPages(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(2, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}})

	catalog := NewCatalog(core.Dict{"Type": core.Name("Catalog"), "Pages": core.IndirectRef{Number: 2}}, resolver)
	pages, err := catalog.Pages()
	if err != nil {
		t.Fatalf("failed to get pages: %v", err)
	}
	if name, _ := pages.GetName("Type"); name != "Pages" {
		t.Errorf("expected Type=Pages, got %v", pages.Get("Type"))
	}

	if _, err := NewCatalog(core.Dict{}, resolver).Pages(); err == nil {
		t.Error("expected error for catalog without /Pages")
	}
}

// buildTree creates root -> [page1, mid -> [page2, page3]] with attributes
// set at different levels.
func buildTree() (*PageTree, *mockResolver) {
	resolver := newMockResolver()
	resolver.AddObject(10, core.Dict{"Type": core.Name("Page"), "Rotate": core.Int(90)})
	resolver.AddObject(11, core.Dict{"Type": core.Name("Page")})
	resolver.AddObject(12, core.Dict{
		"Type":      core.Name("Page"),
		"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Int(200), core.Int(100)},
		"Resources": core.Dict{"Font": core.Dict{}},
	})
	resolver.AddObject(20, core.Dict{
		"Type":   core.Name("Pages"),
		"Kids":   core.Array{core.IndirectRef{Number: 11}, core.IndirectRef{Number: 12}},
		"Rotate": core.Int(-90),
	})
	root := core.Dict{
		"Type":      core.Name("Pages"),
		"Count":     core.Int(99),
		"Kids":      core.Array{core.IndirectRef{Number: 10}, core.IndirectRef{Number: 20}},
		"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Real(595.5), core.Int(842)},
		"Resources": core.Dict{"XObject": core.Dict{}},
	}
	return NewPageTree(root, resolver), resolver
}

func TestPageTreeCountIgnoresDeclaredCount(t *testing.T) {
	tree, _ := buildTree()
	count, err := tree.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 reachable pages, got %d", count)
	}
	if _, err := tree.GetPage(3); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, err := tree.GetPage(-1); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestPageInheritance(t *testing.T) {
	tree, _ := buildTree()

	tests := []struct {
		index     int
		width     float64
		height    float64
		rotate    int
		resources string
	}{
		{0, 595.5, 842, 90, "XObject"},
		{1, 595.5, 842, 270, "XObject"},
		{2, 200, 100, 270, "Font"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page%d", tt.index), func(t *testing.T) {
			page, err := tree.GetPage(tt.index)
			if err != nil {
				t.Fatalf("GetPage: %v", err)
			}
			if page.Width() != tt.width || page.Height() != tt.height {
				t.Errorf("size = %vx%v, want %vx%v", page.Width(), page.Height(), tt.width, tt.height)
			}
			if page.Rotate() != tt.rotate {
				t.Errorf("Rotate = %d, want %d", page.Rotate(), tt.rotate)
			}
			res, err := page.Resources()
			if err != nil {
				t.Fatalf("Resources: %v", err)
			}
			if !res.Has(tt.resources) {
				t.Errorf("resources %v lack /%s", res, tt.resources)
			}
		})
	}
}

func TestPageTreeMissingType(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(5, core.Dict{"Contents": core.IndirectRef{Number: 6}})
	root := core.Dict{"Kids": core.Array{core.IndirectRef{Number: 5}}}
	count, err := NewPageTree(root, resolver).Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 page, got %d", count)
	}
}

func TestPageTreeCycle(t *testing.T) {
	resolver := newMockResolver()
	node := core.Dict{"Type": core.Name("Pages")}
	node["Kids"] = core.Array{core.IndirectRef{Number: 1}}
	resolver.AddObject(1, node)
	if _, err := NewPageTree(node, resolver).Count(); err == nil {
		t.Error("expected an error for a cyclic page tree")
	}
}

func TestMediaBox(t *testing.T) {
	resolver := newMockResolver()
	tests := []struct {
		name string
		dict core.Dict
		want Box
	}{
		{"default letter", core.Dict{}, Box{URX: 612, URY: 792}},
		{"swapped corners", core.Dict{"MediaBox": core.Array{core.Int(100), core.Int(50), core.Int(0), core.Int(0)}}, Box{URX: 100, URY: 50}},
		{"degenerate falls back", core.Dict{"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(0), core.Int(10)}}, Box{URX: 612, URY: 792}},
		{"offset origin", core.Dict{"MediaBox": core.Array{core.Int(10), core.Int(20), core.Int(110), core.Int(220)}}, Box{10, 20, 110, 220}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPage(tt.dict, nil, resolver).MediaBox()
			if err != nil {
				t.Fatalf("MediaBox: %v", err)
			}
			if got != tt.want {
				t.Errorf("MediaBox = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCropBoxDefaultsToMediaBox(t *testing.T) {
	page := NewPage(core.Dict{"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(300), core.Int(400)}}, nil, newMockResolver())
	crop, _ := page.CropBox()
	if crop.Width() != 300 || crop.Height() != 400 {
		t.Errorf("CropBox = %+v", crop)
	}
}

func TestContentData(t *testing.T) {
	resolver := newMockResolver()
	flate, err := core.NewFlateStream(nil, []byte("0 0 m 10 10 l S"))
	if err != nil {
		t.Fatal(err)
	}
	resolver.AddObject(1, &core.Stream{Dict: core.Dict{}, Data: []byte("q 1 w")})
	resolver.AddObject(2, flate)

	page := NewPage(core.Dict{"Contents": core.Array{core.IndirectRef{Number: 1}, core.IndirectRef{Number: 2}}}, nil, resolver)
	data, err := page.ContentData()
	if err != nil {
		t.Fatalf("ContentData: %v", err)
	}
	if want := "q 1 w\n0 0 m 10 10 l S"; string(data) != want {
		t.Errorf("ContentData = %q, want %q", data, want)
	}

	empty, err := NewPage(core.Dict{}, nil, resolver).ContentData()
	if err != nil || len(empty) != 0 {
		t.Errorf("empty page ContentData = %q, %v", empty, err)
	}

	bad := NewPage(core.Dict{"Contents": core.Array{core.Int(3)}}, nil, resolver)
	if _, err := bad.ContentData(); err == nil {
		t.Error("expected error for non-stream contents")
	}
}

func TestResourcesMissing(t *testing.T) {
	res, err := NewPage(core.Dict{}, nil, newMockResolver()).Resources()
	if err != nil {
		t.Fatalf("Resources: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected empty resources, got %v", res)
	}
}
