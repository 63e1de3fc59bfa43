// Package cli implements the reqcap command line: serve runs the capture
// server, render prints the diagnostic form of a raw HTTP request, and
// version reports build information.
package cli
