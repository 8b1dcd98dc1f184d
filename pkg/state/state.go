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

// Package state persists the session state between control-tool
// invocations: the register shadow of every fabric block and the committed
// frequency assignments of every down-conversion stage. The device holds
// this state in hardware; the store is the host-side mirror that lets a new
// process continue the same device session. Reset clears the mirror when
// the session itself is reinitialized.
package state

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-ddc/pkg/log"
)

const (
	RegBucketPrefix  = "reg_"
	FreqBucketPrefix = "freq_"
	BindBucketPrefix = "bind_"
)

type Store struct {
	context.Context
	DB *bbolt.DB
}

func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &Store{
		Context: ctx,
		DB:      db,
	}, nil
}

func (s *Store) Close() {
	s.DB.Close()
}

func uint16ToBytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func uint32ToBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// SetReg mirrors a register write of a fabric block
func (s *Store) SetReg(block, reg string, value uint32) error {
	log.Debug("Mirroring register: block: %s reg: %s value: %x", block, reg, value)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(RegBucketPrefix + block))
		if err != nil {
			return err
		}
		return b.Put([]byte(reg), uint32ToBytes(value))
	})
}

// GetReg returns the mirrored value of a register of a fabric block
func (s *Store) GetReg(block, reg string) (uint32, error) {
	var value uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RegBucketPrefix + block))
		if b == nil {
			return fmt.Errorf("Bucket not found: %s%s", RegBucketPrefix, block)
		}
		valueBytes := b.Get([]byte(reg))
		if valueBytes == nil {
			return fmt.Errorf("Register not found: %s/%s", block, reg)
		}
		value = binary.BigEndian.Uint32(valueBytes)
		return nil
	}); err != nil {
		return 0, err
	}
	return value, nil
}

// GetRegAll returns all mirrored registers of a fabric block
func (s *Store) GetRegAll(block string) (map[string]uint32, error) {
	regs := make(map[string]uint32)
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RegBucketPrefix + block))
		if b == nil {
			return fmt.Errorf("Bucket not found: %s%s", RegBucketPrefix, block)
		}
		return b.ForEach(func(k, v []byte) error {
			regs[string(k)] = binary.BigEndian.Uint32(v)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

// SaveAssignment persists one committed (mixing channel -> tuning word,
// output -> mixing channel) pair of a down-conversion stage. The two
// buckets are written in one transaction so a committed assignment is never
// half-visible to the next invocation.
func (s *Store) SaveAssignment(stage string, ch int, word uint32, out int) error {
	log.Debug("Persisting assignment: stage: %s ch: %d word: %x out: %d", stage, ch, word, out)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		fb, err := tx.CreateBucketIfNotExists([]byte(FreqBucketPrefix + stage))
		if err != nil {
			return err
		}
		if err := fb.Put(uint16ToBytes(uint16(ch)), uint32ToBytes(word)); err != nil {
			return err
		}
		bb, err := tx.CreateBucketIfNotExists([]byte(BindBucketPrefix + stage))
		if err != nil {
			return err
		}
		return bb.Put(uint16ToBytes(uint16(out)), uint16ToBytes(uint16(ch)))
	})
}

// LoadAssignments returns the committed channel words and output bindings
// of a stage. Missing buckets mean a fresh stage, not an error.
func (s *Store) LoadAssignments(stage string) (map[int]uint32, map[int]int, error) {
	words := make(map[int]uint32)
	binds := make(map[int]int)
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		if fb := tx.Bucket([]byte(FreqBucketPrefix + stage)); fb != nil {
			if err := fb.ForEach(func(k, v []byte) error {
				words[int(binary.BigEndian.Uint16(k))] = binary.BigEndian.Uint32(v)
				return nil
			}); err != nil {
				return err
			}
		}
		if bb := tx.Bucket([]byte(BindBucketPrefix + stage)); bb != nil {
			return bb.ForEach(func(k, v []byte) error {
				binds[int(binary.BigEndian.Uint16(k))] = int(binary.BigEndian.Uint16(v))
				return nil
			})
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return words, binds, nil
}

// Reset drops all mirrored state. Called when the device session is
// reinitialized.
func (s *Store) Reset() error {
	log.Info("Resetting session state")
	return s.DB.Update(func(tx *bbolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
