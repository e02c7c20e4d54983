package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rawblock/collision-engine/internal/coordinator"
	"github.com/rawblock/collision-engine/internal/hashcore"
	"github.com/rawblock/collision-engine/internal/store"
)

func main() {
	log.Println("Starting collision-engine coordinator...")

	prefixBytes, _ := strconv.Atoi(getEnvOrDefault("HASH_PREFIX_BYTES", "8"))
	suffixBytes, _ := strconv.Atoi(getEnvOrDefault("HASH_SUFFIX_BYTES", "0"))
	descriptor, err := hashcore.NewDescriptor(prefixBytes, suffixBytes)
	if err != nil {
		log.Fatalf("FATAL: invalid hash descriptor: %v", err)
	}
	log.Printf("Hash descriptor: %s", descriptor)

	dbURL := requireEnv("DATABASE_URL")
	pg, err := store.Connect(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	schemaPath := getEnvOrDefault("SCHEMA_PATH", "internal/store/schema.sql")
	if err := pg.InitSchema(context.Background(), schemaPath); err != nil {
		log.Fatalf("FATAL: schema init failed: %v", err)
	}

	writer := store.NewSerialWriter(pg)
	defer writer.Close()

	hub := coordinator.NewHub()
	go hub.Run()

	router := coordinator.SetupRouter(descriptor, writer, hub)

	port := getEnvOrDefault("PORT", "8080")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down coordinator...")
	}()

	log.Printf("Coordinator listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: server exited: %v", err)
	}
}

func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
