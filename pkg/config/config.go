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

// Package config declares the session topology: the control-link endpoint,
// the fabric blocks/regions/DMA channels and the readout stages, capture
// buffers, switches and rings built on top of them. The config is a yaml
// file under ~/.go-ddc, persisted once and loaded by every command.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ControlConfig is the UDP endpoint of the device control link
type ControlConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// ApiConfig is the listen endpoint of the control REST API
type ApiConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// BlockConfig declares one register block of the fabric. Registers are
// addressed on the wire by their position in Regs.
type BlockConfig struct {
	Name string   `yaml:"name"`
	Id   uint8    `yaml:"id"`
	Regs []string `yaml:"regs"`
}

// RegionConfig declares one memory region of the fabric, sized in 32-bit
// words
type RegionConfig struct {
	Name string `yaml:"name"`
	Id   uint8  `yaml:"id"`
	Size int    `yaml:"size"`
}

// DMAConfig declares one DMA drain channel. Id tags the response frames
// carrying the channel's stream.
type DMAConfig struct {
	Name string `yaml:"name"`
	Id   uint8  `yaml:"id"`
}

// StageConfig declares one down-conversion stage
type StageConfig struct {
	Name       string  `yaml:"name"`
	Block      string  `yaml:"block"`
	Kind       string  `yaml:"kind"`
	SampleRate float64 `yaml:"sample_rate"`
	Decimation int     `yaml:"decimation"`
	WordBits   int     `yaml:"word_bits"`
	Channels   int     `yaml:"channels"`
	Lanes      int     `yaml:"lanes,omitempty"`
	Outputs    int     `yaml:"outputs"`
}

// SwitchConfig declares one input switch shared by capture units
type SwitchConfig struct {
	Name  string `yaml:"name"`
	Block string `yaml:"block"`
	Ports int    `yaml:"ports"`
}

// BufferConfig declares one accumulate/sample capture unit. Switch is
// empty when the unit's input is hardwired.
type BufferConfig struct {
	Name   string `yaml:"name"`
	Block  string `yaml:"block"`
	DMA    string `yaml:"dma"`
	Switch string `yaml:"switch,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	AvgMax int    `yaml:"avg_max"`
	RawMax int    `yaml:"raw_max"`
}

// RingConfig declares one deep ring capture unit. Sources maps stream
// names to switch ports; on a hardwired ring all sources must sit on
// port 0.
type RingConfig struct {
	Name      string         `yaml:"name"`
	Block     string         `yaml:"block"`
	Region    string         `yaml:"region"`
	Switch    string         `yaml:"switch,omitempty"`
	Sources   map[string]int `yaml:"sources"`
	BurstLen  int            `yaml:"burst_len"`
	DataWidth int            `yaml:"data_width"`
}

type Config struct {
	Control  *ControlConfig  `yaml:"control"`
	Api      *ApiConfig      `yaml:"api"`
	StateDB  string          `yaml:"statedb"`
	LogLevel string          `yaml:"loglevel"`
	Blocks   []*BlockConfig  `yaml:"blocks"`
	Regions  []*RegionConfig `yaml:"regions"`
	DMAs     []*DMAConfig    `yaml:"dmas"`
	Stages   []*StageConfig  `yaml:"stages"`
	Switches []*SwitchConfig `yaml:"switches"`
	Buffers  []*BufferConfig `yaml:"buffers"`
	Rings    []*RingConfig   `yaml:"rings"`
	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) Stage(name string) *StageConfig {
	for _, stage := range c.Stages {
		if stage.Name == name {
			return stage
		}
	}
	return nil
}

func (c *Config) Buffer(name string) *BufferConfig {
	for _, buffer := range c.Buffers {
		if buffer.Name == name {
			return buffer
		}
	}
	return nil
}

func (c *Config) Ring(name string) *RingConfig {
	for _, ring := range c.Rings {
		if ring.Name == name {
			return ring
		}
	}
	return nil
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, StateFile)
}

// NewConfig returns an empty config bound to the default path, ready for
// Load.
func NewConfig() *Config {
	return &Config{
		filepath: DefaultConfigPath(),
	}
}

// NewDefaultConfig describes the stock firmware topology: one plain
// readout with its capture unit, a four-lane wide filter bank feeding a
// switched capture unit, and one deep ring behind the same switch.
func NewDefaultConfig() *Config {
	return &Config{
		Control: &ControlConfig{
			Address: DefaultControlAddress,
			Port:    DefaultControlPort,
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		StateDB:  DefaultStatePath(),
		LogLevel: DefaultLogLevel,
		Blocks: []*BlockConfig{
			{
				Name: "readout0",
				Id:   0,
				Regs: []string{"freq", "phase", "nsamp", "outsel", "mode", "we"},
			},
			{
				Name: "pfb0",
				Id:   1,
				Regs: []string{
					"id0", "id1", "id2", "id3",
					"freq0", "freq1", "freq2", "freq3",
					"phase0", "phase1", "phase2", "phase3",
				},
			},
			{
				Name: "buf0",
				Id:   2,
				Regs: []string{
					"avg_start", "avg_addr", "avg_len",
					"avg_dr_start", "avg_dr_addr", "avg_dr_len",
					"raw_start", "raw_addr", "raw_len",
					"raw_dr_start", "raw_dr_addr", "raw_dr_len",
				},
			},
			{
				Name: "buf1",
				Id:   3,
				Regs: []string{
					"avg_start", "avg_addr", "avg_len",
					"avg_dr_start", "avg_dr_addr", "avg_dr_len",
					"raw_start", "raw_addr", "raw_len",
					"raw_dr_start", "raw_dr_addr", "raw_dr_len",
				},
			},
			{
				Name: "sw0",
				Id:   4,
				Regs: []string{"ctrl", "sel"},
			},
			{
				Name: "ring0",
				Id:   5,
				Regs: []string{"wstart", "wnburst"},
			},
		},
		Regions: []*RegionConfig{
			{Name: "ring0mem", Id: 0, Size: 1 << 20},
		},
		DMAs: []*DMAConfig{
			{Name: "dma0", Id: 1},
			{Name: "dma1", Id: 2},
		},
		Stages: []*StageConfig{
			{
				Name:       "readout0",
				Block:      "readout0",
				Kind:       StageKindDDS,
				SampleRate: 4096,
				Decimation: 8,
				WordBits:   32,
				Channels:   1,
				Outputs:    1,
			},
			{
				Name:       "pfb0",
				Block:      "pfb0",
				Kind:       StageKindMuxPFB,
				SampleRate: 4096,
				Decimation: 4,
				WordBits:   32,
				Channels:   64,
				Lanes:      4,
				Outputs:    4,
			},
		},
		Switches: []*SwitchConfig{
			{Name: "sw0", Block: "sw0", Ports: 4},
		},
		Buffers: []*BufferConfig{
			{
				Name:   "buf0",
				Block:  "buf0",
				DMA:    "dma0",
				AvgMax: 1 << 10,
				RawMax: 1 << 12,
			},
			{
				Name:   "buf1",
				Block:  "buf1",
				DMA:    "dma1",
				Switch: "sw0",
				Port:   0,
				AvgMax: 1 << 10,
				RawMax: 1 << 12,
			},
		},
		Rings: []*RingConfig{
			{
				Name:      "ring0",
				Block:     "ring0",
				Region:    "ring0mem",
				Sources:   map[string]int{"pfb0": 0},
				BurstLen:  256,
				DataWidth: 32,
			},
		},
		filepath: DefaultConfigPath(),
	}
}
