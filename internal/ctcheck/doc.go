// Package ctcheck holds source-level policy tests for the mlkem package.
//
// The tests load the library with golang.org/x/tools/go/packages and reject
// constructs that tend to reintroduce timing or logging leaks: variable-time
// comparisons of byte strings and hex formatting of buffers. It has no API.
package ctcheck
