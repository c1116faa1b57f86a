package main

import (
	"context"
	"log"
	"net/http"

	"github.com/campuscanteen/api/internal/config"
	"github.com/campuscanteen/api/internal/database"
	"github.com/campuscanteen/api/internal/payment"
	"github.com/campuscanteen/api/internal/router"
	"github.com/campuscanteen/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Unable to run migrations: %v", err)
	}
	log.Println("Migrations applied")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	gateway := payment.NewHostedGateway(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret)

	r := router.New(cfg, queries, pool, hub, gateway)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
