package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/idempay/internal/api"
	"github.com/punchamoorthee/idempay/internal/bank"
	"github.com/punchamoorthee/idempay/internal/config"
	"github.com/punchamoorthee/idempay/internal/events"
	"github.com/punchamoorthee/idempay/internal/service"
	"github.com/punchamoorthee/idempay/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := store.RunMigrations(cfg.DBSource, cfg.MigrationsPath); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	paymentStore, err := store.NewPostgresStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer paymentStore.Close()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		log.Printf("Publishing payment events to %s", cfg.KafkaTopic)
	}
	defer publisher.Close()

	// Initialize Layers
	gateway := bank.NewSimulator(cfg.ProcessingDelay)
	paymentService := service.NewPaymentService(paymentStore, gateway, publisher)
	handler := api.NewHandler(paymentService)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/payments", handler.SubmitPaymentHandler).Methods("POST")
	apiV1.HandleFunc("/payments/{key}", handler.GetPaymentHandler).Methods("GET")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
