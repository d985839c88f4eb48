// SPDX-License-Identifier: MIT

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpreterParse(t *testing.T) {
	i := NewInterpreter("/")

	tests := []struct {
		name string
		text string
		want Command
		ok   bool
	}{
		{"label", "/label Work", Command{Verb: VerbLabel, LabelName: "Work"}, true},
		{"unlabel", "/unlabel Work", Command{Verb: VerbUnlabel, LabelName: "Work"}, true},
		{"multiword name", "/label Project X", Command{Verb: VerbLabel, LabelName: "Project X"}, true},
		{"verb case-insensitive", "/LABEL Work", Command{Verb: VerbLabel, LabelName: "Work"}, true},
		{"missing argument", "/label", Command{Verb: VerbLabel, LabelName: ""}, true},
		{"empty text", "", Command{}, false},
		{"no prefix", "label Work", Command{}, false},
		{"prefix only", "/", Command{}, false},
		{"unknown verb ignored", "/shrug", Command{}, false},
		{"other punctuation", "¯\\_(ツ)_/¯", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := i.Parse(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestInterpreterCustomPrefix(t *testing.T) {
	i := NewInterpreter("!")

	cmd, ok := i.Parse("!label Work")
	assert.True(t, ok)
	assert.Equal(t, VerbLabel, cmd.Verb)

	_, ok = i.Parse("/label Work")
	assert.False(t, ok)
}
