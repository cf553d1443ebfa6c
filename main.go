// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Bakelite - Protocol Compiler for Embedded Communication
//
// Compiles .bakelite protocol definitions to serialization and
// framing code for embedded and host targets, and provides live
// protocol analysis over serial or WebSocket connections.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/bakelite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
