package main // Entry point package

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/collectiveminds/lab-booking/internal/booking"
	"github.com/collectiveminds/lab-booking/internal/config"
	"github.com/collectiveminds/lab-booking/internal/database"
	"github.com/collectiveminds/lab-booking/internal/handler"
	"github.com/collectiveminds/lab-booking/internal/middleware"
	"github.com/collectiveminds/lab-booking/internal/model"
	"github.com/collectiveminds/lab-booking/internal/queue"
	"github.com/collectiveminds/lab-booking/internal/repository"
	"github.com/collectiveminds/lab-booking/internal/router"
	queuepub "github.com/collectiveminds/lab-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()

	rooms, err := config.LoadRooms(os.Getenv("ROOMS_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	var store repository.SheetStore
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemorySheetStore()
		log.Printf("using in-memory sheet store; reservations will not survive a restart")
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal(err)
		}
		store = repository.NewMySQLSheetStore(db, rooms.Worksheets())
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; reservation cache and rate limiting disabled")
	}

	repo := repository.NewReservationRepo(store, rdb, cfg.CacheTTL)
	svc := booking.NewService(rooms, repo, queuepub.New())

	// Background consumer turning booking events into logs/booking.log lines.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	// Nightly purge keeps worksheets from growing without bound.
	c := cron.New()
	if _, err := c.AddFunc("0 3 * * *", func() { purgeOldReservations(svc, rooms, cfg.RetentionDays) }); err != nil {
		log.Fatal(err)
	}
	c.Start()

	e := echo.New()
	writeLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e, handler.NewRoomHandler(rooms), handler.NewBookingHandler(svc), writeLimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

func purgeOldReservations(svc *booking.Service, rooms *config.RoomCatalogue, retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(model.DateLayout)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, room := range rooms.Rooms {
		n, err := svc.PurgeBefore(ctx, room.ID, cutoff)
		if err != nil {
			log.Printf("purge: room %s: %v", room.ID, err)
			continue
		}
		if n > 0 {
			log.Printf("purge: room %s: removed %d reservations older than %s", room.ID, n, cutoff)
		}
	}
}
