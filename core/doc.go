// Package core holds the PDF object model together with the lexer, parser,
// cross-reference loader and writer used to read source scores and to
// assemble the extracted part document.
//
// # Objects
//
// The eight basic object types ([Null], [Bool], [Int], [Real], [String],
// [Name], [Array], [Dict]) plus [Stream] and [IndirectRef] all satisfy
// [Object].
//
// # Reading
//
// Files are parsed from memory. [LoadXRef] follows the startxref chain,
// accepting classic tables, cross-reference streams and hybrid files;
// [ReconstructXRef] rebuilds the index by scanning object headers when the
// chain is damaged. Objects packed in object streams are reached through
// [ObjectStream]. [Stream.Decode] undoes the stream filters.
//
// # Writing
//
// [Writer] numbers objects as they are added and serializes them with a
// classic xref table:
//
//	w := core.NewWriter()
//	pages := w.Reserve()
//	catalog := w.Add(core.Dict{"Type": core.Name("Catalog"), "Pages": pages})
//	w.SetRoot(catalog)
//	_, err := w.WriteTo(out)
package core
