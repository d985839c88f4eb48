// SPDX-License-Identifier: MIT

// Package command parses and executes label-management commands embedded in
// self-authored text messages. Only texts the local account sent to itself
// or to a chat reach this package; the dispatcher enforces that boundary.
package command

import (
	"strings"
	"unicode/utf8"
)

// Verb is a recognized command verb.
type Verb string

const (
	VerbLabel   Verb = "label"
	VerbUnlabel Verb = "unlabel"
)

// Command is a parsed verb plus its free-text label-name argument. It is
// executed at most once and never persisted.
type Command struct {
	Verb      Verb
	LabelName string
}

// Interpreter recognizes commands by a reserved single-rune prefix.
type Interpreter struct {
	prefix rune
}

// NewInterpreter creates an interpreter for the given prefix string. The
// prefix must be exactly one rune; config validation guarantees that.
func NewInterpreter(prefix string) *Interpreter {
	r, _ := utf8.DecodeRuneInString(prefix)
	return &Interpreter{prefix: r}
}

// Parse extracts a command from a message text. It returns false for empty
// texts, texts without the prefix, and unrecognized verbs. Unrecognized
// verbs are not an error: free text commonly starts with punctuation.
func (i *Interpreter) Parse(text string) (Command, bool) {
	if text == "" {
		return Command{}, false
	}
	r, n := utf8.DecodeRuneInString(text)
	if r != i.prefix {
		return Command{}, false
	}

	fields := strings.Fields(text[n:])
	if len(fields) == 0 {
		return Command{}, false
	}

	verb := Verb(strings.ToLower(fields[0]))
	switch verb {
	case VerbLabel, VerbUnlabel:
	default:
		return Command{}, false
	}

	// Label names may contain spaces; everything after the verb is the name.
	return Command{Verb: verb, LabelName: strings.Join(fields[1:], " ")}, true
}
