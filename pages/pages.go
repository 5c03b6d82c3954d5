package pages

import (
	"bytes"
	"fmt"

	"github.com/wadansyaku/band-part-key-app/core"
)

// ObjectResolver interface for resolving indirect references
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveDeep(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// maxTreeDepth bounds page tree recursion so cyclic /Kids cannot loop forever.
const maxTreeDepth = 64

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Pages returns the page tree root
func (c *Catalog) Pages() (core.Dict, error) {
	pagesRef := c.dict.Get("Pages")
	if pagesRef == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}

	pagesObj, err := c.resolver.Resolve(pagesRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}

	pagesDict, ok := pagesObj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", pagesObj)
	}
	return pagesDict, nil
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page // flattened in document order
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the number of leaf pages actually reachable from the root.
// A wrong /Count in the file does not matter.
func (t *PageTree) Count() (int, error) {
	if err := t.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns all pages as a slice
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

func (t *PageTree) ensureLoaded() error {
	if t.pages != nil {
		return nil
	}
	t.pages = make([]*Page, 0)
	if err := t.traversePageNode(t.root, nil, 0); err != nil {
		t.pages = nil
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	return nil
}

// traversePageNode walks one node. ancestors holds every Pages node above
// it, nearest last, for attribute inheritance.
func (t *PageTree) traversePageNode(node core.Dict, ancestors []core.Dict, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	typeName, _ := node.GetName("Type")
	// Some producers omit /Type; a node with /Kids is an intermediate node.
	if typeName == "" && node.Has("Kids") {
		typeName = "Pages"
	}

	switch typeName {
	case "Pages":
		kidsResolved, err := t.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsResolved.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
		}

		chain := append(append([]core.Dict(nil), ancestors...), node)
		for i, kidObj := range kids {
			kidResolved, err := t.resolver.Resolve(kidObj)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			kidDict, ok := kidResolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", kidResolved)
			}
			if err := t.traversePageNode(kidDict, chain, depth+1); err != nil {
				return err
			}
		}

	case "Page", "":
		t.pages = append(t.pages, NewPage(node, ancestors, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}
	return nil
}

// Box is a rectangle in PDF user space (origin bottom-left).
type Box struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.URX - b.LLX }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.URY - b.LLY }

// Array returns the box as a PDF rectangle array.
func (b Box) Array() core.Array {
	return core.Array{core.Real(b.LLX), core.Real(b.LLY), core.Real(b.URX), core.Real(b.URY)}
}

// Page represents a single PDF page
type Page struct {
	dict      core.Dict
	ancestors []core.Dict
	resolver  ObjectResolver
}

// NewPage creates a new page from its dictionary and the Pages nodes above it.
func NewPage(dict core.Dict, ancestors []core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:      dict,
		ancestors: ancestors,
		resolver:  resolver,
	}
}

// Dict returns the raw page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

// inherited looks up key on the page, then on each ancestor from the
// nearest upwards.
func (p *Page) inherited(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	for i := len(p.ancestors) - 1; i >= 0; i-- {
		if v := p.ancestors[i].Get(key); v != nil {
			return v
		}
	}
	return nil
}

// MediaBox returns the page media box. It defaults to US Letter when no
// node in the chain defines one.
func (p *Page) MediaBox() (Box, error) {
	box, err := p.getBox("MediaBox")
	if err != nil {
		return Box{URX: 612, URY: 792}, nil
	}
	return box, nil
}

// CropBox returns the crop box, defaulting to the media box.
func (p *Page) CropBox() (Box, error) {
	box, err := p.getBox("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) getBox(name string) (Box, error) {
	boxObj := p.inherited(name)
	if boxObj == nil {
		return Box{}, fmt.Errorf("%s not found", name)
	}
	boxResolved, err := p.resolver.ResolveDeep(boxObj)
	if err != nil {
		return Box{}, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	boxArr, ok := boxResolved.(core.Array)
	if !ok || len(boxArr) != 4 {
		return Box{}, fmt.Errorf("invalid %s: %v", name, boxResolved)
	}

	var v [4]float64
	for i := range v {
		n, ok := core.Number(boxArr[i])
		if !ok {
			return Box{}, fmt.Errorf("invalid %s element type: %T", name, boxArr[i])
		}
		v[i] = n
	}
	// Normalize corners; some writers store them swapped.
	box := Box{LLX: min(v[0], v[2]), LLY: min(v[1], v[3]), URX: max(v[0], v[2]), URY: max(v[1], v[3])}
	if box.Width() <= 0 || box.Height() <= 0 {
		return Box{}, fmt.Errorf("degenerate %s", name)
	}
	return box, nil
}

// Resources returns the page resources dictionary, inherited when the page
// has none. A page without resources yields an empty dictionary.
func (p *Page) Resources() (core.Dict, error) {
	resourcesObj := p.inherited("Resources")
	if resourcesObj == nil {
		return core.Dict{}, nil
	}
	resourcesResolved, err := p.resolver.Resolve(resourcesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	resourcesDict, ok := resourcesResolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", resourcesResolved)
	}
	return resourcesDict, nil
}

// ResourcesObject returns the /Resources entry as stored, before resolution.
func (p *Page) ResourcesObject() core.Object {
	return p.inherited("Resources")
}

// Contents returns the page content stream(s)
func (p *Page) Contents() ([]*core.Stream, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil
	}
	contentsResolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	switch v := contentsResolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			resolved, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			stream, ok := resolved.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("contents[%d] is %T, not a stream", i, resolved)
			}
			streams = append(streams, stream)
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents type: %T", contentsResolved)
	}
}

// ContentData decodes all content streams and joins them with a newline,
// so a token split across stream boundaries stays separated.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, s := range streams {
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content stream %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270.
func (p *Page) Rotate() int {
	obj := p.inherited("Rotate")
	if obj == nil {
		return 0
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return 0
	}
	n, ok := resolved.(core.Int)
	if !ok || n%90 != 0 {
		return 0
	}
	return int((n%360 + 360) % 360)
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() float64 {
	box, _ := p.MediaBox()
	return box.Width()
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() float64 {
	box, _ := p.MediaBox()
	return box.Height()
}
