// Package graphicsstate follows the graphics state of a content stream far
// enough to recover the horizontal rules a page paints.
//
// Music notation programs draw staff lines as vector strokes or as thin
// filled rectangles, often one bar at a time. GraphicsExtractor tracks the
// CTM, line width and paint colors through q, Q and cm, records
// near-horizontal segments when a path is stroked and thin boxes when it is
// filled, and descends into form XObjects. MergeRules joins the pieces of
// each line:
//
//	rules, err := graphicsstate.ExtractPage(page, reader, graphicsstate.DefaultConfig())
//
// Rules are reported in page units with y measured down from the top of
// the crop box, the same frame used for rendered rasters.
package graphicsstate
