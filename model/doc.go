// Package model defines the types shared by every stage of part extraction.
//
// # Coordinates
//
// All geometry is in page units (PDF points) with y growing downwards from
// the top edge of the page. Rasters are converted with scale = dpi / 72.
//
//   - [Rect] - rectangle with union, clamp and inset helpers
//   - [Point], [Size] - plain values
//   - [Matrix] - 2D affine transformation used when placing content
//
// # Score structure
//
// A [Staff] is five equally spaced lines. A [System] holds the staves one
// part plays together; a piano grand staff is a two-staff system. Systems
// stacked in one score line form a group, and [System.Rank] is the
// position inside it.
//
// An [InstrumentLabel] is margin text naming an [Instrument]. A [Mapping]
// ties a label to a system, and a [Region] is the page rectangle finally
// copied into the output.
package model
