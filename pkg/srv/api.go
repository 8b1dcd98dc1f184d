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

// go-ddc API
//
// # RESTful APIs to interact with the go-ddc control server
//
// Terms Of Service:
//
// Schemes: http
// Host: localhost:8003
// Version: 1.0.0
// Contact:
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package srv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-ddc/pkg/config"
	"jinr.ru/greenlab/go-ddc/pkg/log"
	"jinr.ru/greenlab/go-ddc/pkg/session"
)

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	sess *session.Session
}

func NewApiServer(ctx context.Context, cfg *config.Config, sess *session.Session) *ApiServer {
	log.Info("Initializing API server with address: %s port: %d", cfg.Api.Address, cfg.Api.Port)
	return &ApiServer{
		Context: ctx,
		Config:  cfg,
		sess:    sess,
	}
}

func (s *ApiServer) Run() error {
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, s.Router),
		Addr:    fmt.Sprintf("%s:%d", s.Config.Api.Address, s.Config.Api.Port),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/reg/{block}/{reg}", s.handleRegGet()).Methods("GET")
	subRouter.HandleFunc("/reg/{block}", s.handleRegGetAll()).Methods("GET")
	subRouter.HandleFunc("/reg/{block}", s.handleRegSet()).Methods("POST")
	subRouter.HandleFunc("/freq/{stage}", s.handleFreqSet()).Methods("POST")
	subRouter.HandleFunc("/mode/{stage}", s.handleModeSet()).Methods("POST")
	subRouter.HandleFunc("/capture/{buffer}/{kind:avg|raw}/config", s.handleCaptureConfig()).Methods("POST")
	subRouter.HandleFunc("/capture/{buffer}/{kind:avg|raw}/enable", s.handleCaptureEnable()).Methods("POST")
	subRouter.HandleFunc("/capture/{buffer}/{kind:avg|raw}/disable", s.handleCaptureDisable()).Methods("POST")
	subRouter.HandleFunc("/capture/{buffer}/{kind:avg|raw}", s.handleTransfer()).Methods("GET")
	subRouter.HandleFunc("/acquire/{buffer}", s.handleAcquire()).Methods("POST")
	subRouter.HandleFunc("/ring/{ring}/arm", s.handleRingArm()).Methods("POST")
	subRouter.HandleFunc("/ring/{ring}/route", s.handleRingRoute()).Methods("POST")
	subRouter.HandleFunc("/ring/{ring}/clear", s.handleRingClear()).Methods("POST")
	subRouter.HandleFunc("/ring/{ring}", s.handleRingRead()).Methods("GET")
	subRouter.HandleFunc("/reset", s.handleReset()).Methods("POST")
}

// swagger:operation GET /reg/{block}/{reg} reg regGet
// Returns the value of a register, shadowed reads served from the store.
// ---
// responses:
//
//	"200":
//	  "$ref": "#/responses/okResp"
func (s *ApiServer) handleRegGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		value, err := s.sess.RegRead(vars["block"], vars["reg"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, &RegHex{Reg: vars["reg"], Value: fmt.Sprintf("0x%08x", value)})
	}
}

func (s *ApiServer) handleRegGetAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		regs, err := s.sess.RegAll(vars["block"])
		if err != nil {
			writeError(w, err)
			return
		}
		result := make([]*RegHex, 0, len(regs))
		for reg, value := range regs {
			result = append(result, &RegHex{Reg: reg, Value: fmt.Sprintf("0x%08x", value)})
		}
		writeJSON(w, result)
	}
}

func (s *ApiServer) handleRegSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		reg := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(reg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := strconv.ParseUint(reg.Value, 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.sess.RegWrite(vars["block"], reg.Reg, uint32(value)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// swagger:operation POST /freq/{stage} freq freqSet
// Steers a stage output to a frequency.
// ---
// responses:
//
//	"200":
//	  "$ref": "#/responses/okResp"
//	"409":
//	  description: frequency collision on a shared mixing channel
func (s *ApiServer) handleFreqSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &FreqSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.sess.SetFreq(vars["stage"], setup.Freq, setup.Out); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleModeSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &ModeSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.sess.SetOutputMode(vars["stage"], setup.Mode); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleCaptureConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &WindowSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		buffer, err := s.sess.Buffer(vars["buffer"])
		if err != nil {
			writeError(w, err)
			return
		}
		if vars["kind"] == "avg" {
			err = buffer.ConfigureAvg(setup.Addr, setup.Length)
		} else {
			err = buffer.ConfigureRaw(setup.Addr, setup.Length)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleCaptureEnable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		buffer, err := s.sess.Buffer(vars["buffer"])
		if err != nil {
			writeError(w, err)
			return
		}
		if vars["kind"] == "avg" {
			err = buffer.EnableAvg()
		} else {
			err = buffer.EnableRaw()
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleCaptureDisable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		buffer, err := s.sess.Buffer(vars["buffer"])
		if err != nil {
			writeError(w, err)
			return
		}
		if vars["kind"] == "avg" {
			err = buffer.DisableAvg()
		} else {
			err = buffer.DisableRaw()
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// swagger:operation GET /capture/{buffer}/{kind} capture transfer
// Drains one captured window over DMA and returns the samples.
// ---
// responses:
//
//	"200":
//	  "$ref": "#/responses/okResp"
//	"502":
//	  description: DMA moved fewer bytes than requested
//	"504":
//	  description: the device never completed the drain
func (s *ApiServer) handleTransfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		addr, err := queryInt(r, "addr", 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		length, err := queryInt(r, "length", 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		buffer, err := s.sess.Buffer(vars["buffer"])
		if err != nil {
			writeError(w, err)
			return
		}
		if vars["kind"] == "avg" {
			samples, err := buffer.TransferAvg(addr, length)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, samples)
			return
		}
		samples, err := buffer.TransferRaw(addr, length)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, samples)
	}
}

func (s *ApiServer) handleAcquire() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &AcquireSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := s.sess.Acquire(vars["buffer"], setup.Addr, setup.Length, setup.Reps)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, result)
	}
}

func (s *ApiServer) handleRingArm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &ArmSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ring, err := s.sess.Ring(vars["ring"])
		if err != nil {
			writeError(w, err)
			return
		}
		if err := ring.Arm(setup.Bursts, setup.Force); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleRingRoute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &RouteSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ring, err := s.sess.Ring(vars["ring"])
		if err != nil {
			writeError(w, err)
			return
		}
		if err := ring.Route(setup.Source); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleRingClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ring, err := s.sess.Ring(vars["ring"])
		if err != nil {
			writeError(w, err)
			return
		}
		if err := ring.Clear(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *ApiServer) handleRingRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		bursts, err := queryInt(r, "bursts", 1)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		start, err := queryInt(r, "start", -1)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ring, err := s.sess.Ring(vars["ring"])
		if err != nil {
			writeError(w, err)
			return
		}
		samples, err := ring.Read(bursts, start)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, samples)
	}
}

func (s *ApiServer) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sess.Reset(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
