// Package credentials fetches the code-signing passphrase.
//
// A [Source] yields a [Credential] whose value never appears in logs or
// formatted output. The source is chosen by configuration: an environment
// variable, a file, or an AWS Secrets Manager secret.
package credentials
