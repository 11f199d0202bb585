// SPDX-License-Identifier: MPL-2.0

// respawn is a self-update helper for command-line binaries: it checks a
// package registry for a newer published version, installs it, and relaunches
// the process so the update takes effect immediately.
package main

import "github.com/respawn-cli/respawn/internal/cli"

func main() {
	cli.Execute()
}
