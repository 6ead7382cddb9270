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

// go-pcmmio API
//
// # RESTful APIs to interact with go-pcmmio control server
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
//	- application/octet-stream
//
//	Produces:
//	- application/json
//	- application/octet-stream
//
// swagger:meta
package control

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/layers"
	"github.com/winsystems/go-pcmmio/pkg/log"
	"github.com/winsystems/go-pcmmio/pkg/mio"
	"github.com/winsystems/go-pcmmio/pkg/srv/control/ifc"
)

//go:embed swagger.json
var swaggerJSON []byte

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

// RegHex ...
type RegHex struct {
	Addr  string // hexadecimal
	Value string // hexadecimal
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	ctrl ifc.ControlServer
	spec *loads.Document
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(ctx context.Context, cfg *config.Config, ctrl ifc.ControlServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.IP, cfg.ApiPort)

	spec, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		return nil, fmt.Errorf("bad embedded API document: %w", err)
	}

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		ctrl:    ctrl,
		spec:    spec,
	}
	s.configureRouter()
	return s, nil
}

// Handler is the router wrapped with access logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)
	return handlers.LoggingHandler(log.Writer(), recovery(s.Router))
}

// Run serves until the server context is done
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s port: %d", s.Config.IP, s.Config.ApiPort)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    fmt.Sprintf("%s:%d", s.Config.IP, s.Config.ApiPort),
	}
	go func() {
		<-s.Done()
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("%s", fmt.Sprint(v...))
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /devices devices
	// ---
	// summary: list loaded cards
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/devices", s.handleDevices()).Methods("GET")
	// swagger:operation GET /reg/r/{device}/{addr} get register
	// ---
	// summary: read register
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/reg/r/{device}/{addr:0x[0-9a-fA-F]{1,2}}", s.handleRegRead()).Methods("GET")
	// swagger:operation GET /reg/r/{device} read all registers
	// ---
	// summary: read the registers that have no read side effects
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/reg/r/{device}", s.handleRegReadAll()).Methods("GET")
	// swagger:operation POST /reg/w/{device} write register
	// ---
	// summary: write register
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/reg/w/{device}", s.handleRegWrite()).Methods("POST")
	// swagger:operation POST /ioctl/{device} ioctl
	// ---
	// summary: run one ioctl, request and reply are binary ioctl frames
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/ioctl/{device}", s.handleIoctl()).Methods("POST")
	// swagger:operation GET /dio/events/{device} dio events
	// ---
	// summary: journal of delivered DIO interrupts
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/dio/events/{device}", s.handleDioEvents()).Methods("GET")
	// swagger:operation GET /dump/{device} dump
	// ---
	// summary: resource, status and DIO interrupt registers
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/dump/{device}", s.handleDump()).Methods("GET")
	subRouter.HandleFunc("/swagger.json", s.handleSwagger()).Methods("GET")
	s.Router.PathPrefix("/api/docs").Handler(middleware.Redoc(middleware.RedocOpts{
		BasePath: "/api",
		Path:     "docs",
		SpecURL:  "/api/swagger.json",
		Title:    "go-pcmmio API",
	}, http.NotFoundHandler()))
}

// httpStatus maps driver and library errors to a response code
func httpStatus(err error) int {
	var unknown driver.ErrUnknownDevice
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.Is(err, ErrJournalDisabled):
		return http.StatusNotFound
	case errors.Is(err, driver.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	var e *mio.Error
	if errors.As(err, &e) && e.Err == nil {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Could not encode response: %s", err)
	}
}

func (s *ApiServer) handleDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos := []driver.Info{}
		for _, d := range s.ctrl.GetAllDevices() {
			infos = append(infos, d.Info())
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })
		writeJSON(w, infos)
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: device: %s, addr: %s", vars["device"], vars["addr"])

		addr, err := strconv.ParseUint(vars["addr"], 0, 8)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		device, err := s.ctrl.GetDeviceByName(vars["device"])
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		reg, err := device.RegRead(r.Context(), uint8(addr))
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		hexAddr, hexValue := reg.Hex()
		writeJSON(w, &RegHex{Addr: hexAddr, Value: hexValue})
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read all request: device: %s", vars["device"])

		device, err := s.ctrl.GetDeviceByName(vars["device"])
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		regs, err := device.RegReadAll(r.Context())
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		regsHex := []*RegHex{}
		for _, reg := range regs {
			hexAddr, hexValue := reg.Hex()
			regsHex = append(regsHex, &RegHex{Addr: hexAddr, Value: hexValue})
		}
		writeJSON(w, regsHex)
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		regHex := &RegHex{}
		err := json.NewDecoder(r.Body).Decode(regHex)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling reg write request: device: %s addr: %s value: %s",
			vars["device"], regHex.Addr, regHex.Value)

		reg, err := layers.NewRegFromHex(regHex.Addr, regHex.Value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		device, err := s.ctrl.GetDeviceByName(vars["device"])
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		if err := device.RegWrite(r.Context(), reg); err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
	}
}

// handleIoctl runs the ioctl carried by the request frame. Driver errors
// travel back in the reply frame as errno.
func (s *ApiServer) handleIoctl() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		data, err := io.ReadAll(io.LimitReader(r.Body, layers.IoctlFrameSize*4))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		request, err := layers.DecodeIoctl(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if request.Reply {
			http.Error(w, "reply frame sent as request", http.StatusBadRequest)
			return
		}

		device, err := s.ctrl.GetDeviceByName(vars["device"])
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}

		cmd := driver.Cmd(request.Cmd)
		log.Debug("Handling ioctl request: device: %s cmd: %s param: 0x%08x", vars["device"], cmd, request.Param)
		result, err := device.Ioctl(r.Context(), cmd, request.Param)
		reply := &layers.IoctlLayer{
			Reply:  true,
			Minor:  uint8(device.Info().Index),
			Cmd:    request.Cmd,
			Result: int32(result),
			Errno:  uint32(driver.Errno(err)),
		}
		if err != nil {
			reply.Result = -1
		}
		out, err := layers.EncodeIoctl(reply)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ContentTypeFrame)
		w.Write(out)
	}
}

func (s *ApiServer) handleDioEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		limit := DefaultEventLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			limit = n
		}

		events, err := s.ctrl.DioEvents(vars["device"], limit)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		if events == nil {
			events = []*ifc.DioEvent{}
		}
		writeJSON(w, events)
	}
}

func (s *ApiServer) handleDump() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		device, err := s.ctrl.GetDeviceByName(vars["device"])
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		regs, err := device.DumpConfig(r.Context())
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		writeJSON(w, regs)
	}
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentTypeJSON)
		w.Write(s.spec.Raw())
	}
}
