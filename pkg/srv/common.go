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

package srv

import (
	"encoding/json"
	"errors"
	"net/http"

	"jinr.ru/greenlab/go-ddc/pkg/capture"
	"jinr.ru/greenlab/go-ddc/pkg/fabric"
	"jinr.ru/greenlab/go-ddc/pkg/readout"
)

// Success response
// swagger:response okResp
type RespOk struct {
	// in:body
	Body struct {
		// HTTP status code 200 - OK
		Code int `json:"code"`
	}
}

// Error Bad Request
// swagger:response badReq
type ReqBadRequest struct {
	// in:body
	Body struct {
		// HTTP status code 400 -  Bad Request
		Code int `json:"code"`
	}
}

// RegHex carries a register value in hexadecimal
type RegHex struct {
	Reg   string `json:"reg"`
	Value string `json:"value"` // hexadecimal
}

// FreqSetup is the body of a frequency assignment request
type FreqSetup struct {
	Freq float64 `json:"freq"`
	Out  int     `json:"out"`
}

// ModeSetup selects what a stage streams downstream
type ModeSetup struct {
	Mode string `json:"mode"`
}

// WindowSetup is the body of a capture window configuration request
type WindowSetup struct {
	Addr   int `json:"addr"`
	Length int `json:"length"`
}

// AcquireSetup is the body of a repeated acquisition request
type AcquireSetup struct {
	Addr   int `json:"addr"`
	Length int `json:"length"`
	Reps   int `json:"reps"`
}

// ArmSetup is the body of a ring arm request
type ArmSetup struct {
	Bursts int  `json:"bursts"`
	Force  bool `json:"force"`
}

// RouteSetup points a ring at one of its declared sources
type RouteSetup struct {
	Source string `json:"source"`
}

func writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// statusFor maps driver errors to HTTP statuses: bad windows and indices
// are client errors, collisions are conflicts, a silent device is a
// gateway timeout and a short DMA stream a bad gateway.
func statusFor(err error) int {
	var unknown fabric.ErrUnknownName
	var unknownReg fabric.ErrUnknownReg
	var timeout fabric.ErrWaitTimeout
	var integrity capture.ErrTransferIntegrity
	var collision readout.ErrFreqCollision
	switch {
	case errors.As(err, &unknown), errors.As(err, &unknownReg):
		return http.StatusNotFound
	case errors.As(err, &collision):
		return http.StatusConflict
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &integrity):
		return http.StatusBadGateway
	default:
		var outOfRange readout.ErrOutOfRange
		var mode readout.ErrUnknownMode
		var conflict readout.ErrModeConflict
		var tooLong capture.ErrWindowTooLong
		var bounds capture.ErrWindowBounds
		var capacity capture.ErrCapacity
		var hardwired capture.ErrHardwiredSource
		var port capture.ErrPortOutOfRange
		if errors.As(err, &outOfRange) || errors.As(err, &mode) || errors.As(err, &tooLong) ||
			errors.As(err, &bounds) || errors.As(err, &capacity) || errors.As(err, &hardwired) ||
			errors.As(err, &port) {
			return http.StatusBadRequest
		}
		if errors.As(err, &conflict) {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}
