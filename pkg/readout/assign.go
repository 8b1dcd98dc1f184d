/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package readout

import (
	"sort"
)

// Table tracks the committed frequency assignments of one filter-bank
// stage: which tuning word each mixing channel holds and which logical
// outputs are bound to it. It is owned by the stage's allocator and lives
// for the device session; a session reset starts from an empty table.
//
// The table is single-writer. Callers invoking SetFreq on the same stage
// from several goroutines must serialize externally, otherwise the
// check-then-commit sequence is not atomic.
type Table struct {
	words   map[int]uint32
	outs    map[int]map[int]struct{}
	binding map[int]int
	last    map[int]int
	// onCommit, when set, persists each committed assignment. It runs
	// after the in-memory commit; its error propagates to the caller.
	onCommit func(ch int, word uint32, out int) error
}

func NewTable() *Table {
	return &Table{
		words:   make(map[int]uint32),
		outs:    make(map[int]map[int]struct{}),
		binding: make(map[int]int),
		last:    make(map[int]int),
	}
}

// Restore preloads committed state, e.g. from the session store when a new
// control process joins a running device session.
func (t *Table) Restore(words map[int]uint32, binding map[int]int) {
	for ch, word := range words {
		t.words[ch] = word
	}
	for out, ch := range binding {
		t.binding[out] = ch
		if t.outs[ch] == nil {
			t.outs[ch] = make(map[int]struct{})
		}
		t.outs[ch][out] = struct{}{}
		// commit order is not persisted, so after a restore the highest
		// bound output stands in for the most recent committer
		if last, ok := t.last[ch]; !ok || out > last {
			t.last[ch] = out
		}
	}
}

func (t *Table) SetOnCommit(fn func(ch int, word uint32, out int) error) {
	t.onCommit = fn
}

// Word returns the tuning word committed on a mixing channel.
func (t *Table) Word(ch int) (uint32, bool) {
	word, ok := t.words[ch]
	return word, ok
}

// Channel returns the mixing channel an output is bound to.
func (t *Table) Channel(out int) (int, bool) {
	ch, ok := t.binding[out]
	return ch, ok
}

// LastOutput returns the output that committed on a mixing channel most
// recently.
func (t *Table) LastOutput(ch int) (int, bool) {
	out, ok := t.last[ch]
	return out, ok
}

// Outputs returns the outputs currently bound to a mixing channel, in
// ascending order.
func (t *Table) Outputs(ch int) []int {
	var outs []int
	for out := range t.outs[ch] {
		outs = append(outs, out)
	}
	sort.Ints(outs)
	return outs
}

// Commit records (channel -> word) and (output -> channel) as one unit.
// The caller has already rejected collisions; committing the same word a
// second time just adds the output to the channel's fan-out set. If the
// output was bound to another channel before, that binding is released
// while the old channel keeps its word (the hardware still holds it).
func (t *Table) Commit(ch int, word uint32, out int) error {
	if prev, ok := t.binding[out]; ok && prev != ch {
		delete(t.outs[prev], out)
	}
	t.words[ch] = word
	t.binding[out] = ch
	t.last[ch] = out
	if t.outs[ch] == nil {
		t.outs[ch] = make(map[int]struct{})
	}
	t.outs[ch][out] = struct{}{}
	if t.onCommit != nil {
		return t.onCommit(ch, word, out)
	}
	return nil
}
