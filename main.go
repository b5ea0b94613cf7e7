// Copyright 2025 Emin Salih Açıkgöz
// SPDX-License-Identifier: gpl3-or-later

package main

import "pup/cmd"

func main() {
	cmd.Execute()
}
