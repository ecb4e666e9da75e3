// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebkin/imgpipe/internal/kafka"
	"github.com/glebkin/imgpipe/internal/mwlogger"
	"github.com/glebkin/imgpipe/internal/repository"
	"github.com/glebkin/imgpipe/internal/service"
	"github.com/glebkin/imgpipe/internal/storage"
	"github.com/glebkin/imgpipe/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// load config/envs
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// start logger
	zlog.InitConsole()
	err := zlog.SetLevel("info")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// app-wide context listening for interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect to DB and apply migrations
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)

	// connect to blob storage
	strg := storage.NewBlobStorage(appConfig, 10*time.Second)
	repo := repository.NewPostgresJobRepo(dbConn)

	// wait for kafka and connect as producer
	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker, 10*time.Second)
	topic := appConfig.GetString("KAFKA_TOPIC")
	kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic)
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	var svc JobAPIService = service.NewJobService(repo, pub, strg)
	handlers := transport.NewJobHandler(svc)

	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/transform", handlers.Transform)  // synchronous one-shot transform
	engine.POST("/jobs", handlers.CreateJob)       // queue an async transform
	engine.GET("/jobs", handlers.GetAllJobs)       // list jobs with pagination and sorting
	engine.GET("/jobs/:id", handlers.Get)          // job status
	engine.GET("/jobs/:id/result", handlers.LoadResult)
	engine.DELETE("/jobs/:id", handlers.Delete)

	srv := &http.Server{
		Addr:    ":" + appConfig.GetString("APP_PORT"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// background loop re-queueing stuck jobs
	go recoveryLoop(ctx, svc)

	<-ctx.Done()

	shutdown(pub, dbConn)
	log.Println("Exiting api...")
}

func recoveryLoop(ctx context.Context, svc JobAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(context.Background(), 20)
		}
	}
}

func shutdown(pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
