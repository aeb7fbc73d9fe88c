// Package mirror transfers directory trees between the local machine and
// the publishing root.
//
// Every transfer is a mirror: after Pull the local directory equals the
// remote one, after Push the remote equals the local one, deletions
// included. Three channels exist, chosen by the form of the root:
//
//	s3://bucket/prefix      S3
//	file:///srv/packages    Dir (a plain absolute path works too)
//	user@host:/srv/packages Rsync
//
// Remote paths passed to Pull and Push are relative to the root.
package mirror
