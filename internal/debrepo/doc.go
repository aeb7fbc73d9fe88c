// Package debrepo maintains a reprepro Debian repository.
//
// The repository declares the distributions it serves in
// conf/distributions. Ingesting a package adds it to one distribution; a
// package meant for every distribution is ingested once per codename.
package debrepo
