package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"talehub/internal/account"
	"talehub/internal/auth"
	"talehub/internal/blob"
	"talehub/internal/config"
	"talehub/internal/httpapi"
	"talehub/internal/interaction"
	"talehub/internal/notify"
	"talehub/internal/stats"
	"talehub/internal/storage"
	"talehub/internal/story"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "talehub",
	Short: "Collaborative storytelling backend",
}

// Version should be injected via ldflags.
var Version = "dev"

var configPath string

func Init(version string) {
	if version != "" {
		Version = version
	}
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(secretCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Print a random secret suitable for TALEHUB_ACCESS_SECRET or TALEHUB_REFRESH_SECRET",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		secret, err := auth.GenerateSecret()
		if err != nil {
			log.Fatalf("Error generating secret: %v", err)
		}
		fmt.Println(secret)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Error opening database: %v", err)
		}
		if err := storage.Migrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Printf("Schema up to date (%s)\n", cfg.Database.Driver)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		if release, _ := cmd.Flags().GetBool("release"); release {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, cfg); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		fmt.Println("Server stopped")
	},
}

func init() {
	serveCmd.Flags().Bool("release", false, "run gin in release mode")
}

// serve wires every component from cfg and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	store := storage.New(db)

	sinks := []notify.Sink{notify.NewStoreSink(store)}
	if cfg.Notify.URL != "" {
		sinks = append(sinks, notify.NewHTTPSink(cfg.Notify.URL))
	}
	if cfg.Notify.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.Notify.NATSURL)
		if err != nil {
			// notifications are best effort; run without the NATS sink
			log.Printf("Warning: NATS unavailable, continuing without it: %v", err)
		} else {
			defer nc.Close()
			sinks = append(sinks, notify.NewNATSSink(nc, cfg.Notify.NATSSubject))
		}
	}
	bus := notify.NewBus(cfg.Notify.BufferSize, cfg.Notify.Workers, cfg.Notify.Timeout, sinks...)
	defer bus.Close()

	uploader, err := newUploader(cfg)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(cfg.JWT, store)
	srv := httpapi.New(httpapi.Deps{
		Tokens:    tokens,
		Cookies:   auth.NewCookieManager(cfg.Cookies, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Directory: store,
		Accounts:  account.NewService(store, tokens, bus),
		Stories:   story.NewEngine(store, uploader, bus, cfg.Server.DefaultAvatar),
		Ledger:    interaction.NewLedger(store, bus),
		Stats:     stats.New(),
	}, httpapi.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		UploadDir:      cfg.Server.UploadDir,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Println("\nShutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if dropped := bus.Dropped(); dropped > 0 {
		log.Printf("Notification buffer overflowed %d times", dropped)
	}
	return nil
}

func newUploader(cfg *config.Config) (blob.Uploader, error) {
	if cfg.Cloudinary.URL != "" {
		return blob.NewCloudinaryUploader(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	}
	publicBase := strings.TrimRight(cfg.Server.PublicURL, "/") + "/uploads"
	return blob.NewDirUploader(cfg.Server.UploadDir, publicBase)
}
