package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"ultradianService/internal/auth"
	"ultradianService/internal/cycle"
	"ultradianService/internal/records"

	"github.com/jackc/pgx/v5/pgxpool"
)

var webPort = os.Getenv("WEB_PORT")
var redisAddr = os.Getenv("REDIS_ADDR")
var dsn = os.Getenv("DSN")

type Config struct {
	Runner   *cycle.Runner
	Records  records.Repository
	AuthRepo auth.AuthRepository
}

func main() {
	if webPort == "" {
		webPort = "8080"
	}

	// Live-session snapshots go to Redis so an interrupted session can be
	// resumed after a restart; without Redis the timer still works, it
	// just won't survive a crash.
	var snapshotStore cycle.SnapshotStore
	if redisAddr != "" {
		redisStore, err := cycle.NewRedisSnapshotStore(redisAddr)
		if err != nil {
			log.Printf("Warning: Redis unavailable, session snapshots disabled: %v", err)
		} else {
			snapshotStore = redisStore
		}
	}

	conn := connectToDB()

	var repo records.Repository
	if conn == nil {
		log.Println("Postgres unavailable, keeping focus records in memory")
		repo = records.NewMemoryRepository()
	} else {
		pgRepo, err := records.NewPostgresRepository(conn)
		if err != nil {
			log.Panic(err)
		}
		repo = pgRepo
	}

	app := Config{
		Runner:   cycle.NewRunner(snapshotStore),
		Records:  repo,
		AuthRepo: setupAuthRepo(conn),
	}
	app.init()
	log.Printf("Starting ultradian service on port %s\n", webPort)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", webPort),
		Handler: app.routes(),
	}

	err := srv.ListenAndServe()
	if err != nil {
		log.Panic(err)
	}
}

func setupAuthRepo(conn *pgxpool.Pool) auth.AuthRepository {
	return auth.NewAuthRepository(conn)
}
