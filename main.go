// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/bundlemap/cmd/bundlemap"

func main() {
	cmd.Execute()
}
