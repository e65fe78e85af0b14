package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Seeds the access control database with card holders, schedules and a few
// days of badge scans so the sync runner has something to chew on locally.

var controllers = []string{
	"FR-Acid Halte-4626",
	"FR-Chloride Office-5633",
	"FR-Pyrite Office-5635",
	"FR-Pyrite Warehouse-4522",
}

func main() {
	var (
		dsn   = flag.String("dsn", "host=localhost port=5432 user=user password=password dbname=access_control_db sslmode=disable", "source database DSN")
		staff = flag.Int("staff", 25, "number of staff members to seed")
		days  = flag.Int("days", 3, "number of days of scans, ending yesterday")
	)
	flag.Parse()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("pinging database: %v", err)
	}

	seeded := 0
	for i := 0; i < *staff; i++ {
		staffNo := fmt.Sprintf("MTI%04d", 1000+i)
		cardNo := fmt.Sprintf("CARD%04d", 1000+i)

		if _, err := db.Exec(
			`INSERT INTO card_holders (card_no, staff_no, name, department, position)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (card_no) DO NOTHING`,
			cardNo, staffNo, fmt.Sprintf("Staff %04d", 1000+i), "Production", "Operator"); err != nil {
			log.Fatalf("inserting card holder: %v", err)
		}
		if _, err := db.Exec(
			`INSERT INTO staff_time_schedules (staff_no, time_in, time_out, day_type)
			 VALUES ($1, $2, $3, $4) ON CONFLICT (staff_no) DO NOTHING`,
			staffNo, "07:00:00", "17:00:00", "Weekday"); err != nil {
			log.Fatalf("inserting schedule: %v", err)
		}

		for d := *days; d >= 1; d-- {
			day := time.Now().AddDate(0, 0, -d)
			// Scans scatter around the 07:00-17:00 shift, with a few strays.
			arrive := time.Date(day.Year(), day.Month(), day.Day(), 6, 50, 0, 0, time.Local).
				Add(time.Duration(rand.Intn(40)) * time.Minute)
			leave := time.Date(day.Year(), day.Month(), day.Day(), 16, 40, 0, 0, time.Local).
				Add(time.Duration(rand.Intn(50)) * time.Minute)

			for _, ts := range []time.Time{arrive, leave} {
				controller := controllers[rand.Intn(len(controllers))]
				if _, err := db.Exec(
					`INSERT INTO access_transactions (card_no, tr_datetime, tr_controller, unit_no, transaction_kind)
					 VALUES ($1, $2, $3, $4, $5)`,
					cardNo, ts, controller, "UNIT-1", "Valid Entry Access"); err != nil {
					log.Fatalf("inserting transaction: %v", err)
				}
				seeded++
			}
		}
	}

	log.Printf("Seeded %d staff members with %d scans", *staff, seeded)
}
