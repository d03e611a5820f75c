// Package export renders segments or the whole story to WAVE files.
package export
