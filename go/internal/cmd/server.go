package main

import (
	"fmt"
	"net/http"
	"time"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/health", services.Health)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
