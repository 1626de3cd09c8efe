package main

import (
	"fmt"
	"io"
)

// termNotifier renders the SDK's toast-style feedback on the terminal.
type termNotifier struct {
	out io.Writer
}

func (t termNotifier) Success(msg string) { fmt.Fprintln(t.out, "ok:", msg) }
func (t termNotifier) Info(msg string)    { fmt.Fprintln(t.out, msg) }
func (t termNotifier) Warning(msg string) { fmt.Fprintln(t.out, "warning:", msg) }
func (t termNotifier) Error(msg string)   { fmt.Fprintln(t.out, "error:", msg) }
