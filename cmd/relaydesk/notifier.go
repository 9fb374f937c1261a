package main

import (
	"fmt"
	"io"
)

// terminalNotifier prints notifications inline with the console output.
type terminalNotifier struct {
	out io.Writer
}

func (n terminalNotifier) Info(msg string)    { fmt.Fprintln(n.out, "•", msg) }
func (n terminalNotifier) Success(msg string) { fmt.Fprintln(n.out, "✓", msg) }
func (n terminalNotifier) Error(msg string)   { fmt.Fprintln(n.out, "✗", msg) }
