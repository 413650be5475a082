package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ragmail/config"
	"ragmail/gmail"
	"ragmail/rag"
	"ragmail/responder"
	"ragmail/server"
)

func main() {
	log.Println("Application starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, cancelling context...")
		cancel()
	}()

	gmailClient, err := gmail.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Gmail client: %v. Ensure credentials.json is present and valid.", err)
	}
	log.Println("Gmail client initialized.")

	ragClient := rag.NewClient(cfg)

	resp := responder.New(gmailClient, ragClient, cfg)
	go resp.Run(ctx)

	srv := server.New(gmailClient, ragClient, cfg)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Error shutting down HTTP server: %v", err)
		}
	}()

	log.Printf("Serving HTTP on %s", cfg.ListenAddr)
	if err := srv.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
	log.Println("Exiting.")
}
