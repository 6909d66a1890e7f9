package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/clinicdesk/scheduler-ai/internal/availability"
	"github.com/clinicdesk/scheduler-ai/internal/normalize"
)

var seedDoctors = []struct {
	name           string
	specialization string
	email          string
	phone          string
}{
	{"Dr. John Smith", "Cardiology", "john.smith@clinicdesk.example", "+15550100001"},
	{"Dr. Sarah Johnson", "Dermatology", "sarah.johnson@clinicdesk.example", "+15550100002"},
	{"Dr. Michael Lee", "Pediatrics", "michael.lee@clinicdesk.example", "+15550100003"},
	{"Dr. Emily Davis", "General Medicine", "emily.davis@clinicdesk.example", "+15550100004"},
}

var seedPatients = []struct {
	name  string
	email string
	phone string
}{
	{"Alice Brown", "alice.brown@example.com", "+15550200001"},
	{"Bob Wilson", "bob.wilson@example.com", "+15550200002"},
}

func main() {
	_ = godotenv.Load()

	days := flag.Int("days", 14, "number of days of availability to seed")
	dayStart := flag.String("start", "09:00", "first slot of the day")
	dayEnd := flag.String("end", "17:00", "end of the last slot")
	flag.Parse()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	doctorIDs := make([]int64, 0, len(seedDoctors))
	for _, d := range seedDoctors {
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO doctors (name, specialization, email, phone)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING
			RETURNING id
		`, d.name, d.specialization, d.email, d.phone).Scan(&id)
		if err != nil {
			// Conflict returns no row; look the doctor up instead.
			if err := pool.QueryRow(ctx, `SELECT id FROM doctors WHERE name = $1`, d.name).Scan(&id); err != nil {
				log.Fatalf("seed doctor %q: %v", d.name, err)
			}
		}
		doctorIDs = append(doctorIDs, id)
	}

	for _, p := range seedPatients {
		if _, err := pool.Exec(ctx, `
			INSERT INTO patients (name, email, phone)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, p.name, p.email, p.phone); err != nil {
			log.Fatalf("seed patient %q: %v", p.name, err)
		}
	}

	store := availability.NewStore(pool)
	seeded := 0
	today := time.Now().UTC()
	for day := 1; day <= *days; day++ {
		date := today.AddDate(0, 0, day)
		// Skip weekends.
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		iso := date.Format(normalize.ISODate)
		for _, doctorID := range doctorIDs {
			for clock := *dayStart; clock < *dayEnd; clock, _ = normalize.AddMinutes(clock, 30) {
				end, _ := normalize.AddMinutes(clock, 30)
				if err := store.Seed(ctx, doctorID, iso, clock, end); err != nil {
					log.Fatalf("seed slot %s %s: %v", iso, clock, err)
				}
				seeded++
			}
		}
	}

	fmt.Printf("seeded %d doctors, %d patients, %d open slots\n", len(doctorIDs), len(seedPatients), seeded)
}
