package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"landmarket/internal/db"
	"landmarket/internal/migrations"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	apply := flag.Bool("apply", false, "apply migrations instead of listing them")
	flag.Parse()

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

	migs, err := migrations.All()
	if err != nil {
		log.Fatalf("read migrations: %v", err)
	}
	for _, m := range migs {
		if !*apply {
			fmt.Println(m.Name)
			continue
		}
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			log.Fatalf("failed to apply %s: %v", m.Name, err)
		}
		fmt.Printf("applied %s\n", m.Name)
	}
}
