// Package labels finds instrument names in the left margin of score pages.
//
// The native text layer is tried first. Only when none of its spans in the
// margin strip names an instrument is the raster strip handed to a text
// recognizer; recognized text then goes through [Correct] before matching.
// Both paths share [Normalize] and the vocabulary [Classifier].
package labels
