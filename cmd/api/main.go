package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"covoy.app/internal/account"
	"covoy.app/internal/database"
	"covoy.app/internal/db"
	"covoy.app/internal/httpapi"
	"covoy.app/internal/notify"
	"covoy.app/internal/obs"
	"covoy.app/internal/payments"
	"covoy.app/internal/rpc"
	"covoy.app/internal/upload"
)

var (
	version = "0.3.1"
	commit  = "none" // set via -ldflags at release build
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("COVOY_PG_DSN")
	if dsn == "" {
		log.Fatal("missing COVOY_PG_DSN")
	}
	if err := database.RunMigrations(dsn); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := db.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var sender notify.Sender = notify.LogSender{}
	if key := os.Getenv("COVOY_MAIL_API_KEY"); key != "" {
		sender = notify.NewHTTPSender(
			os.Getenv("COVOY_MAIL_ENDPOINT"),
			key,
			envOr("COVOY_MAIL_FROM", "Covoy <no-reply@covoy.app>"),
		)
	}

	publicURL := envOr("COVOY_PUBLIC_URL", "http://localhost:"+envOr("PORT", "3000"))
	uploads, err := upload.NewStore(envOr("COVOY_UPLOAD_DIR", "uploads"), publicURL)
	if err != nil {
		log.Fatalf("upload store: %v", err)
	}

	gateway := payments.NewClient(os.Getenv("COVOY_RAZORPAY_KEY_ID"), os.Getenv("COVOY_RAZORPAY_KEY_SECRET"))

	api := httpapi.New(httpapi.Config{
		DB:           pool,
		Accounts:     account.NewService(pool, sender),
		Dispatcher:   rpc.NewDispatcher(pool),
		Payments:     payments.NewBridge(pool, gateway, os.Getenv("COVOY_RAZORPAY_KEY_SECRET")),
		Uploads:      uploads,
		Version:      version,
		FounderEmail: os.Getenv("COVOY_FOUNDER_EMAIL"),
	})

	srv := &http.Server{
		Addr:              ":" + envOr("PORT", "3000"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting covoy-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = pool.Close()
	log.Println("Stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
