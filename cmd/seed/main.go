package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"clinicops/backend/internal/config"
	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/lock"
	"clinicops/backend/internal/service/scheduling"
	"clinicops/backend/internal/store/postgres"
)

// seed fills the database with a plausible week of bookings for demos and
// load testing. Conflicting picks are simply skipped; the point is volume,
// not exact counts.
func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("service", "seed"))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Error("CLINICOPS_DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 5})
	if err != nil {
		log.Error("database connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = postgres.Close(db) }()

	svc := scheduling.NewService(postgres.NewAppointmentRepo(db), lock.NewKeyedMutex(), scheduling.Config{
		RepoTimeout: cfg.RepoTimeout,
	})

	gofakeit.Seed(time.Now().UnixNano())

	doctors := make([]string, 6)
	for i := range doctors {
		doctors[i] = fmt.Sprintf("dr-%s", gofakeit.LastName())
	}
	rooms := []string{"room-1", "room-2", "room-3", "room-4"}
	channels := []domain.Channel{domain.ChannelWalkIn, domain.ChannelPhone, domain.ChannelOnline}
	services := []domain.ServiceItem{
		{Name: "General Consultation", DurationMinutes: 30, Price: 50},
		{Name: "Follow-up", DurationMinutes: 15, Price: 25},
		{Name: "Vaccination", DurationMinutes: 15, Price: 40},
		{Name: "Physical Exam", DurationMinutes: 45, Price: 80},
	}

	ctx := context.Background()
	start := time.Now().UTC().AddDate(0, 0, 1)

	created, skipped := 0, 0
	for day := 0; day < 7; day++ {
		date := start.AddDate(0, 0, day)
		for i := 0; i < 40; i++ {
			startMinute := 9*60 + 30*gofakeit.Number(0, 20)
			duration := 30 * gofakeit.Number(1, 3)

			startClock := fmt.Sprintf("%02d:%02d", startMinute/60, startMinute%60)
			endClock := fmt.Sprintf("%02d:%02d", (startMinute+duration)/60, (startMinute+duration)%60)

			_, err := svc.Create(ctx, scheduling.CreateInput{
				PatientRef: gofakeit.Name(),
				Day:        date,
				StartClock: startClock,
				EndClock:   endClock,
				DoctorID:   doctors[gofakeit.Number(0, len(doctors)-1)],
				RoomID:     rooms[gofakeit.Number(0, len(rooms)-1)],
				Channel:    channels[gofakeit.Number(0, len(channels)-1)],
				Services:   []domain.ServiceItem{services[gofakeit.Number(0, len(services)-1)]},
			})
			if err != nil {
				var cErr *scheduling.ConflictError
				if errors.As(err, &cErr) {
					skipped++
					continue
				}
				log.Error("seed create failed", slog.Any("err", err))
				os.Exit(1)
			}
			created++
		}
	}

	log.Info("seed complete", slog.Int("created", created), slog.Int("skipped", skipped))
}
