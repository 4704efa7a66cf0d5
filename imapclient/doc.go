// Package imapclient implements the Connection Engine: the single piece of
// the protocol core that owns a transport and drives the wire exchange end
// to end, turning token/respparse/command/transport primitives into a
// caller-facing, tag-demultiplexed command surface.
//
// Untagged data is attributed to the oldest pending command. When several
// commands that collect untagged data (FETCH, SEARCH and the like) are in
// flight at once from different goroutines, one command's results may hold
// untagged data that the server sent for another. Tagged completions are
// always matched by tag.
package imapclient
