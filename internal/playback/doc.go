// Package playback fetches segment audio and plays a script through an
// output device one segment at a time.
package playback
