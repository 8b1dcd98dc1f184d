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

// Package command is the client side of the control REST API, used by the
// CLI commands to talk to a running control server.
package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-ddc/pkg/capture"
	"jinr.ru/greenlab/go-ddc/pkg/config"
	"jinr.ru/greenlab/go-ddc/pkg/session"
	"jinr.ru/greenlab/go-ddc/pkg/srv"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.Api.Address, cfg.Api.Port),
	}
}

func checkStatus(r *req.Resp) error {
	if r.Response().StatusCode != 200 {
		body, _ := r.ToString()
		if body != "" {
			return errors.New(body)
		}
		return errors.New(r.Response().Status)
	}
	return nil
}

// RegGet returns the value of a register of a fabric block
func (c *ApiClient) RegGet(block, reg string) (string, error) {
	r, err := req.Get(fmt.Sprintf("%s/reg/%s/%s", c.ApiPrefix, block, reg))
	if err != nil {
		return "", err
	}
	if err = checkStatus(r); err != nil {
		return "", err
	}
	value := &srv.RegHex{}
	if err = r.ToJSON(value); err != nil {
		return "", err
	}
	return value.Value, nil
}

// RegGetAll returns all shadowed registers of a fabric block
func (c *ApiClient) RegGetAll(block string) ([]*srv.RegHex, error) {
	r, err := req.Get(fmt.Sprintf("%s/reg/%s", c.ApiPrefix, block))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	var regs []*srv.RegHex
	if err = r.ToJSON(&regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// RegSet sets a register of a fabric block to a value
func (c *ApiClient) RegSet(block, reg, value string) error {
	r, err := req.Post(fmt.Sprintf("%s/reg/%s", c.ApiPrefix, block),
		req.BodyJSON(&srv.RegHex{Reg: reg, Value: value}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// FreqSet steers a stage output to a frequency
func (c *ApiClient) FreqSet(stage string, f float64, out int) error {
	r, err := req.Post(fmt.Sprintf("%s/freq/%s", c.ApiPrefix, stage),
		req.BodyJSON(&srv.FreqSetup{Freq: f, Out: out}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// ModeSet selects what a stage streams downstream
func (c *ApiClient) ModeSet(stage, mode string) error {
	r, err := req.Post(fmt.Sprintf("%s/mode/%s", c.ApiPrefix, stage),
		req.BodyJSON(&srv.ModeSetup{Mode: mode}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// CaptureConfig stages a capture window, kind is avg or raw
func (c *ApiClient) CaptureConfig(buffer, kind string, addr, length int) error {
	r, err := req.Post(fmt.Sprintf("%s/capture/%s/%s/config", c.ApiPrefix, buffer, kind),
		req.BodyJSON(&srv.WindowSetup{Addr: addr, Length: length}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// CaptureEnable arms a capture side
func (c *ApiClient) CaptureEnable(buffer, kind string) error {
	r, err := req.Post(fmt.Sprintf("%s/capture/%s/%s/enable", c.ApiPrefix, buffer, kind), req.BodyJSON(struct{}{}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// CaptureDisable disarms a capture side
func (c *ApiClient) CaptureDisable(buffer, kind string) error {
	r, err := req.Post(fmt.Sprintf("%s/capture/%s/%s/disable", c.ApiPrefix, buffer, kind), req.BodyJSON(struct{}{}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// TransferAvg drains accumulated sums from a capture unit
func (c *ApiClient) TransferAvg(buffer string, addr, length int) ([]capture.IQ32, error) {
	r, err := req.Get(fmt.Sprintf("%s/capture/%s/avg?addr=%d&length=%d", c.ApiPrefix, buffer, addr, length))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	var samples []capture.IQ32
	if err = r.ToJSON(&samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// TransferRaw drains decimated samples from a capture unit
func (c *ApiClient) TransferRaw(buffer string, addr, length int) ([]capture.IQ16, error) {
	r, err := req.Get(fmt.Sprintf("%s/capture/%s/raw?addr=%d&length=%d", c.ApiPrefix, buffer, addr, length))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	var samples []capture.IQ16
	if err = r.ToJSON(&samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Acquire runs a repeated accumulation capture and returns per-slot means
func (c *ApiClient) Acquire(buffer string, addr, length, reps int) (*session.Acquisition, error) {
	r, err := req.Post(fmt.Sprintf("%s/acquire/%s", c.ApiPrefix, buffer),
		req.BodyJSON(&srv.AcquireSetup{Addr: addr, Length: length, Reps: reps}))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	result := &session.Acquisition{}
	if err = r.ToJSON(result); err != nil {
		return nil, err
	}
	return result, nil
}

// RingArm programs the ring burst count and restarts the capture
func (c *ApiClient) RingArm(ring string, bursts int, force bool) error {
	r, err := req.Post(fmt.Sprintf("%s/ring/%s/arm", c.ApiPrefix, ring),
		req.BodyJSON(&srv.ArmSetup{Bursts: bursts, Force: force}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// RingRoute points the ring input switch at a declared source
func (c *ApiClient) RingRoute(ring, source string) error {
	r, err := req.Post(fmt.Sprintf("%s/ring/%s/route", c.ApiPrefix, ring),
		req.BodyJSON(&srv.RouteSetup{Source: source}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// RingClear zeroes the ring backing memory
func (c *ApiClient) RingClear(ring string) error {
	r, err := req.Post(fmt.Sprintf("%s/ring/%s/clear", c.ApiPrefix, ring), req.BodyJSON(struct{}{}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// RingRead returns bursts of ring samples, start < 0 skips the pipeline
// junk at the head of the capture
func (c *ApiClient) RingRead(ring string, bursts, start int) ([]capture.IQ16, error) {
	r, err := req.Get(fmt.Sprintf("%s/ring/%s?bursts=%d&start=%d", c.ApiPrefix, ring, bursts, start))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	var samples []capture.IQ16
	if err = r.ToJSON(&samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Reset drops the session state on the server
func (c *ApiClient) Reset() error {
	r, err := req.Post(fmt.Sprintf("%s/reset", c.ApiPrefix), req.BodyJSON(struct{}{}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}
