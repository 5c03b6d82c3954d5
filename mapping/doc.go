// Package mapping assigns instrument labels to the staff systems they name.
//
// Two strategies implement Strategy. Spatial pairs each label with the
// nearest system it precedes, after labels of non-target instruments have
// claimed theirs, and resolves competition so that a system holds one
// mapping and a group holds one mapping per target. Canonical places the
// targets by their usual position in the ensemble and is used when a page
// has no usable labels.
package mapping
