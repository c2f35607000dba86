package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func (app *Config) init() {
	// Pick up a session that was live when the previous process died.
	// The machine's timestamps carry the elapsed time, so the watcher
	// resumes exactly where the wall clock says it should.
	resumed, err := app.Runner.RestoreFromStore()
	if err != nil {
		log.Printf("Warning: failed to load session snapshot: %v", err)
	}
	if resumed {
		app.Runner.Poll()
	}
}

var counts = 0

func connectToDB() *pgxpool.Pool {
	if dsn == "" {
		log.Println("DSN not set, skipping Postgres")
		return nil
	}

	for {
		// keep connecting to the database
		connection, err := openDB(dsn)
		if err != nil {
			log.Printf("Postgres is not yet ready")
			counts++
		} else {
			log.Printf("Connected to Postgres!")
			return connection
		}

		if counts > 10 {
			log.Println(err)
			return nil
		}

		log.Println("Backing off for two seconds...")
		time.Sleep(2 * time.Second)
	}
}

func openDB(dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	err = pool.Ping(context.Background())
	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

const requestTimeout = 5 * time.Second

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readJSON decodes the request body into dst. An empty body leaves dst
// at its zero value; malformed JSON writes a 400 and returns false.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Failed to parse request body")
		return false
	}
	return true
}
