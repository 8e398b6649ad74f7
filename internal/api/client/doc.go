// Package client queries the health and status endpoints of a running
// rdesk server. It backs the status subcommand of the CLI.
package client
