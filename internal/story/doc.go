// Package story holds the data model of a multi-voice reading: voices,
// speaker-tagged segments, the ordered script they form, and the errors the
// pipeline reports.
package story
