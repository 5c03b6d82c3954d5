// Package compose builds the output PDF from selected regions.
//
// Layout is the write cursor: it scales each region to the printable
// width, starts a new page when a region would cross the bottom margin and
// never moves backwards. Document copies each source page once as a form
// XObject, with its resources renumbered into the new file, and draws the
// form through a clipping rectangle so only the region shows:
//
//	doc := compose.NewDocument(src, compose.DefaultLayoutConfig(), log)
//	for _, r := range regions {
//	    if _, err := doc.Transplant(r); errors.Is(err, compose.ErrNotTransplantable) {
//	        doc.PlaceImage(r, crop) // raster of the same clip
//	    }
//	}
//	doc.WriteTo(w)
//
// Every region gets a small colored chip naming its instrument.
package compose
