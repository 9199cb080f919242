package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/pageflowhq/pageflow/configs"
	job "github.com/pageflowhq/pageflow/internal/jobs"
	"github.com/pageflowhq/pageflow/internal/queue"
	"github.com/pageflowhq/pageflow/internal/repository"
)

// Standalone scheduler tick, meant to run from cron:
//
//	* * * * * sendposts --limit=3
func main() {
	limit := flag.Int("limit", job.DefaultClaimLimit, "maximum number of posts claimed per run")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURI})
	defer client.Close()

	postRepo := repository.NewPostRepository(db)
	dispatcher := queue.NewDispatcher(client)

	sendPostJob := job.NewSendPostJob(postRepo, dispatcher)
	if err := sendPostJob.Run(context.Background(), *limit); err != nil {
		log.Fatalf("Send post run failed: %v", err)
	}
}
