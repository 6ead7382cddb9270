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

package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"
	"golang.org/x/sys/unix"

	"github.com/winsystems/go-pcmmio/pkg/command/ifc"
	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/layers"
	"github.com/winsystems/go-pcmmio/pkg/mio"
	"github.com/winsystems/go-pcmmio/pkg/srv/control"
	controlifc "github.com/winsystems/go-pcmmio/pkg/srv/control/ifc"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

var _ ifc.ApiClient = &ApiClient{}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.IP, cfg.ApiPort),
	}
}

func (c *ApiClient) regReadUrl(device, addr string) string {
	return fmt.Sprintf("%s/reg/r/%s/%s", c.ApiPrefix, device, addr)
}

func (c *ApiClient) regReadAllUrl(device string) string {
	return fmt.Sprintf("%s/reg/r/%s", c.ApiPrefix, device)
}

func (c *ApiClient) regWriteUrl(device string) string {
	return fmt.Sprintf("%s/reg/w/%s", c.ApiPrefix, device)
}

func (c *ApiClient) ioctlUrl(device string) string {
	return fmt.Sprintf("%s/ioctl/%s", c.ApiPrefix, device)
}

// statusError turns a failed response into an error carrying the server message
func statusError(r *req.Resp) error {
	resp := r.Response()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	msg := strings.TrimSpace(r.String())
	if msg == "" {
		return errors.New(resp.Status)
	}
	return fmt.Errorf("%s: %s", resp.Status, msg)
}

// Devices lists the cards loaded by the control server
func (c *ApiClient) Devices() ([]driver.Info, error) {
	r, err := req.Get(fmt.Sprintf("%s/devices", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err := statusError(r); err != nil {
		return nil, err
	}
	var infos []driver.Info
	if err := r.ToJSON(&infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// RegRead sends request to get the value of a register of a device
func (c *ApiClient) RegRead(device, addr string) (string, error) {
	r, err := req.Get(c.regReadUrl(device, addr))
	if err != nil {
		return "", err
	}
	if err := statusError(r); err != nil {
		return "", err
	}
	reg := &control.RegHex{}
	err = r.ToJSON(reg)
	if err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll sends request to get values of all bulk readable registers of a device
func (c *ApiClient) RegReadAll(device string) (map[string]string, error) {
	r, err := req.Get(c.regReadAllUrl(device))
	if err != nil {
		return nil, err
	}
	if err := statusError(r); err != nil {
		return nil, err
	}
	var regs []*control.RegHex
	result := make(map[string]string)
	err = r.ToJSON(&regs)
	if err != nil {
		return nil, err
	}
	for _, reg := range regs {
		result[reg.Addr] = reg.Value
	}
	return result, nil
}

// RegWrite sends request to write the value to a register of a device
func (c *ApiClient) RegWrite(device, addr, value string) error {
	reg := &control.RegHex{
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(c.regWriteUrl(device), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	return statusError(r)
}

// DioEvents fetches the last limit journal entries of a device
func (c *ApiClient) DioEvents(device string, limit int) ([]*controlifc.DioEvent, error) {
	r, err := req.Get(fmt.Sprintf("%s/dio/events/%s?limit=%d", c.ApiPrefix, device, limit))
	if err != nil {
		return nil, err
	}
	if err := statusError(r); err != nil {
		return nil, err
	}
	var events []*controlifc.DioEvent
	if err := r.ToJSON(&events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *ApiClient) Dump(device string) ([]mio.RegValue, error) {
	r, err := req.Get(fmt.Sprintf("%s/dump/%s", c.ApiPrefix, device))
	if err != nil {
		return nil, err
	}
	if err := statusError(r); err != nil {
		return nil, err
	}
	var regs []mio.RegValue
	if err := r.ToJSON(&regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// Ioctl runs one ioctl on a card of the control server. An errno carried
// by the reply is returned as the matching driver error.
func (c *ApiClient) Ioctl(ctx context.Context, device string, cmd driver.Cmd, param uint32) (int, error) {
	frame, err := layers.EncodeIoctl(&layers.IoctlLayer{Cmd: uint32(cmd), Param: param})
	if err != nil {
		return 0, err
	}
	r, err := req.Post(c.ioctlUrl(device), ctx,
		req.Header{"Content-Type": control.ContentTypeFrame}, frame)
	if err != nil {
		if ctx.Err() != nil {
			return 0, driver.ErrInterrupted
		}
		return 0, err
	}
	if err := statusError(r); err != nil {
		return 0, err
	}
	reply, err := layers.DecodeIoctl(r.Bytes())
	if err != nil {
		return 0, err
	}
	if !reply.Reply || reply.Cmd != uint32(cmd) {
		return 0, fmt.Errorf("unexpected reply to %s", cmd)
	}
	if reply.Errno != 0 {
		return 0, driver.FromErrno(unix.Errno(reply.Errno))
	}
	return int(reply.Result), nil
}

// Handle returns a library handle issuing every call on device through
// the control server
func (c *ApiClient) Handle(device string) mio.Handle {
	return &remoteHandle{client: c, device: device}
}

type remoteHandle struct {
	client *ApiClient
	device string
}

func (h *remoteHandle) Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error) {
	return h.client.Ioctl(ctx, h.device, cmd, param)
}

func (h *remoteHandle) String() string {
	return h.device
}
