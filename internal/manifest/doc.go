// Package manifest reads the application's package.json and derives the
// files the packaging step consumes.
//
// The packaging tool is driven by a configuration file generated from the
// manifest's own build section with two overrides: the product name shown
// to users, and an fpm flag pointing Debian packaging at a custom control
// file. The control file itself is rendered from a template in the source
// tree with the build version appended.
package manifest
