// Package pages provides PDF page tree traversal and page access.
//
// PDF documents organize pages in a tree of /Pages nodes. [PageTree]
// flattens it in document order:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	count, _ := tree.Count()
//	page, _ := tree.GetPage(0) // 0-indexed
//
// A [Page] exposes what the part transplanter needs from a source page:
//
//   - MediaBox and CropBox as a [Box]
//   - Rotate, normalized to a multiple of 90
//   - Resources, inherited from any ancestor node
//   - ContentData, all content streams decoded and joined
//
// The [ObjectResolver] interface abstracts object lookup so the page tree
// does not depend on the reader.
package pages
