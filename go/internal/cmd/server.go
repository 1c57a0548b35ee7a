package main

import (
	"net/http"
	"time"

	"github.com/mcdev12/pollroom/go/internal/api"
	"github.com/mcdev12/pollroom/go/internal/serverconfig"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg serverconfig.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	registerServices(mux, services)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// WebSocket endpoint and connection stats
	services.Gateway.RegisterRoutes(mux)

	// /teacher-login, /poll-history, /health, /info
	services.REST.RegisterRoutes(mux)

	// Admin RPCs
	classroomPath, classroomHandler := api.NewClassroomServiceHandler(services.Classroom)
	mux.Handle(classroomPath, classroomHandler)
}
