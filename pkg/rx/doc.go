// Package rx turns a polled serial byte stream into RC messages.
package rx

// A Receiver owns one protocol parser, chosen once in Begin. Update drains
// the bytes already buffered by the source and never blocks, so it is meant
// to be called from the caller's own control loop.
//
// Link loss is not reported as an error. Callers poll Timeout, Failsafe or
// TimeSinceLastMessage and decide how to react.
//
// When IdleThreshold is set, a gap between two bytes longer than the
// threshold is treated as a frame boundary: the parser is reset and the next
// byte is only accepted if it is the protocol header byte.
