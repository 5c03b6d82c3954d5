// Package staff detects five-line staves in a page raster and groups them
// into systems.
//
// Detection runs in three steps. A [LineFinder] returns near-horizontal
// rules in raster pixels; builds tagged "cv" use OpenCV's Hough transform,
// other builds scan row projections. The [Detector] then walks the
// deduplicated lines top to bottom and keeps runs of exactly five lines
// with uniform spacing (see [IsStaff]). Finally close staves with matching
// spacing are paired into grand-staff systems and systems are split into
// vertical groups at unusually large gaps.
package staff
