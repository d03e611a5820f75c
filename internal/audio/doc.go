// Package audio drives the output device. A Device hands out at most one
// live Unit at a time; a Unit plays one decoded buffer at an adjustable
// rate and reports natural completion through a callback.
package audio
