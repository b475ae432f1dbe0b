package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// One-off maintenance script: recomputes the cached average_rating and
// review_count columns on equipment rows from their approved reviews.
// Needed after importing legacy review data that bypassed the moderation
// engine's aggregate updates.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	log.Println("Backfilling equipment rating cache...")
	result, err := db.Exec(`
		UPDATE equipment e SET
			average_rating = COALESCE(agg.avg_rating, 0),
			review_count   = COALESCE(agg.cnt, 0)
		FROM (
			SELECT equipment_id,
			       ROUND(AVG(overall_rating)::numeric, 2) AS avg_rating,
			       COUNT(*) AS cnt
			FROM reviews
			WHERE status = 'approved'
			GROUP BY equipment_id
		) agg
		WHERE agg.equipment_id = e.id
	`)
	if err != nil {
		log.Fatalf("Failed to backfill rating cache: %v", err)
	}

	rows, _ := result.RowsAffected()
	log.Printf("Rating cache backfilled for %d equipment rows", rows)
}
