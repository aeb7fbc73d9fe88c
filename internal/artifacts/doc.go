// Package artifacts selects build outputs by file name and copies them
// into the published tree.
//
// Selection is by regular expression over the entries of a single
// directory. A selection that matches nothing is an error: a build that
// produced no installer is broken, and publishing nothing would hide it.
package artifacts
