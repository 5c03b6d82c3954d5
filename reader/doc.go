// Package reader provides high-level PDF file reading and object resolution.
//
// A [Reader] holds the whole file in memory and resolves objects on demand
// from the merged cross-reference data, including objects packed in object
// streams:
//
//	r, err := reader.Open("score.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	n, _ := r.PageCount()
//	page, _ := r.GetPage(0) // 0-indexed
//
// Files with a damaged cross-reference section are repaired by scanning for
// object headers; [Reader.Repaired] reports when that happened. Encrypted
// files are rejected with [ErrEncrypted].
//
// Loaded objects are cached. The cache is guarded by a mutex so pages can be
// resolved from several goroutines.
package reader
