package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/pageflowhq/pageflow/configs"
	"github.com/pageflowhq/pageflow/internal/api/handlers"
	"github.com/pageflowhq/pageflow/internal/api/middleware"
	job "github.com/pageflowhq/pageflow/internal/jobs"
	"github.com/pageflowhq/pageflow/internal/queue"
	"github.com/pageflowhq/pageflow/internal/repository"
	"github.com/pageflowhq/pageflow/internal/service"
	"github.com/robfig/cron"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	memberRepo := repository.NewMemberRepository(db)
	postRepo := repository.NewPostRepository(db)
	memberPageRepo := repository.NewMemberPageRepository(db)

	facebookService := service.NewFacebookService(*cfg)
	mediaService := service.NewMediaService(*cfg)
	authService := service.NewAuthService(*cfg, facebookService, memberRepo, memberPageRepo)
	postService := service.NewPostService(postRepo, memberPageRepo, mediaService)
	pageService := service.NewPageService(memberPageRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/update", post.UpdatePost)
	api.Post("/posts/remove", post.RemovePost)

	page := handlers.NewPageHandler(pageService)
	api.Get("/pages", page.ListPages)
	api.Post("/pages/remove", page.RemovePage)

	// queue worker
	queueW := queue.NewQueue(*cfg, postRepo, memberPageRepo, facebookService, mediaService)
	dispatcher := queue.NewDispatcher(client)

	// scheduler tick, same job the sendposts command runs
	sendPostJob := job.NewSendPostJob(postRepo, dispatcher)
	c := cron.New()
	c.AddFunc("@every 1m", func() {
		if err := sendPostJob.Run(context.Background(), job.DefaultClaimLimit); err != nil {
			log.Printf("Send post run failed: %v", err)
		}
	})
	c.Start()
	defer c.Stop()

	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency:    10,
		RetryDelayFunc: queue.RetryDelay,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeSendPost, queueW.HandleSendPostTask)

	var g errgroup.Group
	g.Go(func() error {
		log.Println("Starting the Asynq server...")
		return srv.Run(mux)
	})
	g.Go(func() error {
		log.Println("Server is running on http://localhost:3000")
		return app.Listen(":3000")
	})

	go gracefulShutdown(app, srv)

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}

	log.Println("Server shutdown complete.")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, srv *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down HTTP server: %v", err)
	}
	srv.Shutdown()
}
