package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"landmarket/internal/db"
	"landmarket/internal/repository/postgres"
	"landmarket/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "testuser", "account id")
	name := flag.String("name", "Tester", "display name")
	balance := flag.Int64("balance", 5000, "credit this amount to the account (0 to skip)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	service.InitJWT(secret)

	if *balance > 0 {
		// expects DATABASE_URL env var
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL not set")
		}
		ctx := context.Background()
		pool, err := db.Connect(ctx, dsn)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()

		ledger := service.NewLedgerService(service.NewRunner(postgres.NewStore(pool)))
		if _, err := ledger.Credit(ctx, *userID, *balance, "test user seed"); err != nil {
			log.Fatalf("seed balance failed: %v", err)
		}
		bal, err := ledger.GetBalance(ctx, *userID)
		if err != nil {
			log.Fatalf("read balance failed: %v", err)
		}
		log.Printf("user %s balance=%d\n", *userID, bal)
	}

	token, err := service.GenerateJWT(*userID, *name, *ttl)
	if err != nil {
		log.Fatalf("token generation failed: %v", err)
	}
	fmt.Println(token)
}
