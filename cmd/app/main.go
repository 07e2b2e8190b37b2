package main

import (
	"SpendSnap-Backend/cmd/config"
	migration "SpendSnap-Backend/cmd/database/migrate"
	"SpendSnap-Backend/internal/utils"
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	utils.LoadConfig()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}

	if err := migration.Migrate(db); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	app, processor, err := config.NewApp(db)
	if err != nil {
		log.Fatalf("building application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go processor.Run(ctx)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	if err := app.Listen(":8080"); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
