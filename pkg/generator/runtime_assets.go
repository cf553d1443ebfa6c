// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package generator

import _ "embed"

// Runtime support artifacts shipped inside the compiler. Each backend
// hands its artifact out verbatim from `bakelite runtime`.

//go:embed runtimes/bakelite-ctiny.h
var ctinyRuntime string

//go:embed runtimes/bakelite-cpptiny.h
var cpptinyRuntime string

//go:embed runtimes/bakelite_runtime.py
var pythonRuntime string
