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

package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestRegShadow(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetReg("readout0", "freq", 0xdeadbeef))
	value, err := store.GetReg("readout0", "freq")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), value)

	_, err = store.GetReg("readout0", "phase")
	assert.Error(t, err)
	_, err = store.GetReg("nosuchblock", "freq")
	assert.Error(t, err)

	require.NoError(t, store.SetReg("readout0", "outsel", 1))
	regs, err := store.GetRegAll("readout0")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint32{"freq": 0xdeadbeef, "outsel": 1}, regs)
}

func TestAssignments(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveAssignment("pfb0", 5, 42, 0))
	require.NoError(t, store.SaveAssignment("pfb0", 5, 42, 2))
	require.NoError(t, store.SaveAssignment("pfb0", 3, 7, 1))

	words, binds, err := store.LoadAssignments("pfb0")
	require.NoError(t, err)
	assert.Equal(t, map[int]uint32{5: 42, 3: 7}, words)
	assert.Equal(t, map[int]int{0: 5, 2: 5, 1: 3}, binds)

	// a stage that never committed anything is simply fresh
	words, binds, err = store.LoadAssignments("pfb9")
	require.NoError(t, err)
	assert.Empty(t, words)
	assert.Empty(t, binds)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetReg("readout0", "freq", 1))
	require.NoError(t, store.SaveAssignment("pfb0", 5, 42, 0))
	require.NoError(t, store.Reset())

	_, err := store.GetReg("readout0", "freq")
	assert.Error(t, err)
	words, binds, err := store.LoadAssignments("pfb0")
	require.NoError(t, err)
	assert.Empty(t, words)
	assert.Empty(t, binds)
}
