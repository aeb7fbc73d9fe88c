// Loads and validates the shipyard configuration file.
//
// The configuration is a YAML document. Every field has a default, except
// the mirror root, which must name where published artifacts live. A
// missing file at the default location yields the defaults; a missing file
// that was explicitly requested is an error.
//
// Example configuration:
//
//	product: element.io
//	branch: develop
//	platforms: [win64, win32, mac, linux]
//	mirror:
//	  root: packages@mirror.example.org:/srv/
//	vm:
//	  name: win10-builder
//	  ssh_addr: 192.168.56.10:22
//	  share_dir: /srv/vmshare
//	schedule:
//	  at: "03:00"
package config
