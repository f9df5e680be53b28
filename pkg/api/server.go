// CreamLinux Installer
// Copyright (c) 2026 The CreamLinux Installer Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of CreamLinux Installer.
//
// CreamLinux Installer is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CreamLinux Installer is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CreamLinux Installer.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the JSON-RPC 2.0 interface over a local WebSocket and
// broadcasts service notifications to every connected client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/methods"
	"github.com/Novattz/creamlinux-installer/pkg/api/middleware"
	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/models/requests"
	"github.com/Novattz/creamlinux-installer/pkg/api/validation"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    -32700,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    -32600,
		Message: "Invalid Request",
	}
	JSONRPCErrorMethodNotFound = models.ErrorObject{
		Code:    -32601,
		Message: "Method not found",
	}
)

const (
	CodeInvalidParams = -32602
	CodeServerError   = -32000
)

// DefaultAllowedOrigins are the web views of the desktop frontend.
var DefaultAllowedOrigins = []string{
	"tauri://localhost",
	"http://tauri.localhost",
	"http://localhost:*",
	"http://127.0.0.1:*",
}

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	// library
	models.MethodScanSteamGames:       methods.HandleScanSteamGames,
	models.MethodProcessGameAction:    methods.HandleProcessGameAction,
	models.MethodInstallCreamWithDLCs: methods.HandleInstallCreamWithDLCs,
	// dlcs
	models.MethodStreamGameDLCs:         methods.HandleStreamGameDLCs,
	models.MethodAbortDLCFetch:          methods.HandleAbortDLCFetch,
	models.MethodGetAllDLCs:             methods.HandleGetAllDLCs,
	models.MethodUpdateDLCConfiguration: methods.HandleUpdateDLCConfiguration,
	// conflicts
	models.MethodGetCurrentConflict:      methods.HandleGetCurrentConflict,
	models.MethodResolvePlatformConflict: methods.HandleResolvePlatformConflict,
	// smokeapi
	models.MethodReadSmokeAPIConfig:   methods.HandleReadSmokeAPIConfig,
	models.MethodWriteSmokeAPIConfig:  methods.HandleWriteSmokeAPIConfig,
	models.MethodDeleteSmokeAPIConfig: methods.HandleDeleteSmokeAPIConfig,
	// settings
	models.MethodLoadConfig:   methods.HandleLoadConfig,
	models.MethodUpdateConfig: methods.HandleUpdateConfig,
	// utils
	models.MethodVersion: methods.HandleVersion,
}

// errorObject maps a handler error to its JSON-RPC error.
func errorObject(err error) models.ErrorObject {
	if validation.IsValidationError(err) {
		return models.ErrorObject{Code: CodeInvalidParams, Message: err.Error()}
	}
	return models.ErrorObject{Code: CodeServerError, Message: err.Error()}
}

func handleRequest(env requests.RequestEnv, req *models.RequestObject) (any, *models.ErrorObject) {
	log.Debug().Str("method", req.Method).RawJSON("params", nonEmptyJSON(req.Params)).Msg("received request")

	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		log.Warn().Str("method", req.Method).Msg("unknown method")
		return nil, &JSONRPCErrorMethodNotFound
	}

	env.ID = *req.ID
	env.Params = req.Params

	resp, err := fn(env)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Msg("error handling request")
		e := errorObject(err)
		return nil, &e
	}
	return resp, nil
}

func nonEmptyJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	data, err := json.Marshal(models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
	if err != nil {
		return err
	}
	return session.Write(data)
}

func sendError(session *melody.Session, id uuid.UUID, e models.ErrorObject) error {
	log.Debug().Int("code", e.Code).Str("message", e.Message).Msg("sending error")

	data, err := json.Marshal(models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &e,
	})
	if err != nil {
		return err
	}
	return session.Write(data)
}

// broadcastNotifications forwards notifications to every session in the
// order they were sent.
func broadcastNotifications(ctx context.Context, m *melody.Melody, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping notification broadcast")
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			data, err := json.Marshal(models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}
			if err := m.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func handleWSMessage(
	ctx context.Context,
	cfg *config.Instance,
	svc *service.Service,
) func(session *melody.Session, msg []byte) {
	return func(session *melody.Session, msg []byte) {
		// ping command for heartbeat operation
		if string(msg) == "ping" {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		var req models.RequestObject
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Error().Err(err).Msg("data not valid json")
			if err := sendError(session, uuid.Nil, JSONRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		id := uuid.Nil
		if req.ID != nil {
			id = *req.ID
		}
		if req.JSONRPC != "2.0" || req.Method == "" {
			log.Error().Str("jsonrpc", req.JSONRPC).Msg("invalid request")
			if err := sendError(session, id, JSONRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}
		if req.ID == nil {
			log.Debug().Str("method", req.Method).Msg("received notification, ignoring")
			return
		}

		// long running methods must not hold up the session's read loop
		go func() {
			resp, rpcErr := handleRequest(requests.RequestEnv{
				Context: ctx,
				Config:  cfg,
				Service: svc,
				IsLocal: middleware.IsLoopbackAddr(session.Request.RemoteAddr),
			}, &req)
			if rpcErr != nil {
				if err := sendError(session, id, *rpcErr); err != nil {
					log.Error().Err(err).Msg("error sending error response")
				}
				return
			}
			if err := sendResponse(session, id, resp); err != nil {
				log.Error().Err(err).Msg("error sending response")
			}
		}()
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		log.Debug().Err(err).Msg("error writing health response")
	}
}

// originAllowed matches origin against patterns where a trailing "*"
// matches any port or suffix.
func originAllowed(patterns []string, origin string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(origin, prefix) {
				return true
			}
			continue
		}
		if strings.EqualFold(p, origin) {
			return true
		}
	}
	return false
}

// NewRouter builds the HTTP handler and the WebSocket hub of the API.
func NewRouter(ctx context.Context, cfg *config.Instance, svc *service.Service) (http.Handler, *melody.Melody) {
	origins := append(append([]string{}, DefaultAllowedOrigins...), cfg.AllowedOrigins()...)

	rateLimiter := middleware.NewIPRateLimiter(nil)
	rateLimiter.StartCleanup(ctx)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(middleware.LocalOnly)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	m := melody.New()
	m.Config.MaxMessageSize = 1 << 20
	m.Upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || originAllowed(origins, origin) {
			return true
		}
		log.Warn().Str("origin", origin).Msg("rejected websocket origin")
		return false
	}
	m.HandleMessage(middleware.WebSocketRateLimitHandler(rateLimiter, handleWSMessage(ctx, cfg, svc)))

	r.Get("/health", handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRateLimitMiddleware(rateLimiter))
		r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
			if err := m.HandleRequest(w, r); err != nil {
				log.Error().Err(err).Msg("handling websocket request")
			}
		})
	})

	return r, m
}

// Start serves the API on the loopback interface until ctx is cancelled.
func Start(
	ctx context.Context,
	cfg *config.Instance,
	svc *service.Service,
	notifications <-chan models.Notification,
) {
	handler, m := NewRouter(ctx, cfg, svc)
	go broadcastNotifications(ctx, m, notifications)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.APIPort()))
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		if err := m.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing websocket sessions")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down http server")
		}
	}()

	log.Info().Str("addr", addr).Msg("starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("error starting http server")
	}
}
