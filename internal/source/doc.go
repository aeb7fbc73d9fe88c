// Package source fetches the application source tree for a build.
//
// [Git] clones one branch or tag of a remote repository into an empty
// directory. Only the requested ref is fetched; with a depth set the
// clone is shallow.
package source
