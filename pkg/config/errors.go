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

package config

import (
	"fmt"
)

// ErrConfigFileExists returned when persisting a config would overwrite an
// existing file without the overwrite flag
type ErrConfigFileExists struct {
	Path string
}

func (e ErrConfigFileExists) Error() string {
	return fmt.Sprintf("Config file already exists: %s", e.Path)
}

// ErrBadStageKind returned for a stage kind outside dds/pfb/muxpfb
type ErrBadStageKind struct {
	Stage string
	Kind  string
}

func (e ErrBadStageKind) Error() string {
	return fmt.Sprintf("Unknown kind of stage %s: %s. Must be one of: %s, %s, %s",
		e.Stage, e.Kind, StageKindDDS, StageKindPFB, StageKindMuxPFB)
}
