package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	handler "docchat/handler/http"
	"docchat/src/core/chat"
	"docchat/src/core/chunk"
	"docchat/src/infrastructure/integrations/ollama"
	jobctrl "docchat/src/infrastructure/job"
	"docchat/src/infrastructure/log"
	"docchat/src/storage/archive"
	"docchat/src/storage/memoryindex"
	"docchat/src/storage/minioctrl"
	"docchat/src/storage/postgres/documentctrl"
	"docchat/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document chat HTTP server",
	Long:  `The serve command starts an HTTP server that provides the document chat API`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) {
	// Initialize LLM client
	timeout, err := time.ParseDuration(viper.GetString("llm.timeout"))
	if err != nil {
		log.Error(err, "Invalid llm timeout, using default 120s")
		timeout = 120 * time.Second
	}
	llmClient := ollama.NewClient(viper.GetString("llm.url"), &http.Client{
		Timeout: timeout,
	})
	provider := ollama.NewProvider(
		llmClient,
		viper.GetString("llm.embedding_model"),
		viper.GetString("llm.generation_model"),
	)

	// Select index backend
	var builder chat.IndexBuilder
	var indexPinger handler.IndexPinger
	switch backend := viper.GetString("index.backend"); backend {
	case "weaviate":
		wc := weaviateClient.New(weaviateClient.Config{
			Host:   viper.GetString("weaviate.url"),
			Scheme: "http",
		})
		wsdk := weaviate.NewSDK(wc)
		builder = weaviate.NewBuilder(wsdk, provider)
		indexPinger = wsdk
	case "memory":
		builder = memoryindex.NewBuilder(provider)
	default:
		log.Error(fmt.Errorf("unknown index backend: %s", backend), "Failed to configure index")
		return
	}

	splitter := chunk.NewSplitter(
		chunk.WithSize(viper.GetInt("chunk.size")),
		chunk.WithOverlap(viper.GetInt("chunk.overlap")),
	)

	opts := []chat.ServiceOption{
		chat.WithSplitter(splitter),
		chat.WithTopK(viper.GetInt("chat.top_k")),
	}

	// Optional archiving of uploaded originals, with background
	// re-indexing through the job queue
	var jobService *jobctrl.JobService
	var closeArchive func()
	if viper.GetBool("archive.enabled") {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			viper.GetString("postgres.host"),
			viper.GetString("postgres.user"),
			viper.GetString("postgres.password"),
			viper.GetString("postgres.db"),
			viper.GetString("postgres.port"))
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Error(err, "Failed to connect to database")
			return
		}

		minioService, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			log.Error(err, "Failed to initialize minio service")
			return
		}

		documentService, err := documentctrl.NewDocumentService(db)
		if err != nil {
			log.Error(err, "Failed to initialize document service")
			return
		}

		archiver, err := archive.NewArchiver(minioService, documentService, viper.GetString("minio.document_bucket"))
		if err != nil {
			log.Error(err, "Failed to initialize archiver")
			return
		}
		opts = append(opts, chat.WithArchiver(archiver))

		publisher, err := amqp.NewPublisher(
			amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Error(err, "Failed to create AMQP publisher")
			return
		}

		jobRepo, err := jobctrl.NewPostgresJobRepository(db)
		if err != nil {
			log.Error(err, "Failed to initialize job repository")
			return
		}
		jobService = jobctrl.NewJobService(publisher, jobRepo, watermill.NewStdLogger(false, false), nil)

		closeArchive = func() {
			if err := publisher.Close(); err != nil {
				log.Error(err, "Error closing AMQP publisher")
			}
			sqlDB, err := db.DB()
			if err != nil {
				log.Error(err, "Failed to get underlying *sql.DB")
				return
			}
			if err := sqlDB.Close(); err != nil {
				log.Error(err, "Error closing database connection")
			}
		}
	}

	chatService := chat.NewService(builder, provider, opts...)

	// Initialize HTTP handler
	h := handler.NewHandler(chatService, llmClient, jobService, indexPinger)

	// Setup gin router
	r := gin.Default()

	// Register routes
	h.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	shutdownTimeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		shutdownTimeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if closeArchive != nil {
		closeArchive()
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
