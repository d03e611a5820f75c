// Package pcm converts between packed 16-bit PCM, normalized floating point
// sample buffers and RIFF/WAVE container files. Everything in this package is
// stateless.
package pcm
