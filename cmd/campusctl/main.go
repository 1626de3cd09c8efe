// Command campusctl is a terminal client for the Campushub backend: sign in,
// inspect the current session, manage the profile and password, and follow
// notifications.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
