// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Command sactank converts SAC files into TRACEBUF2 streams, receives SAC
// files over the network, and batches converted streams into tank files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sactank: %s\n", err)
		os.Exit(1)
	}
}
