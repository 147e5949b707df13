// cmd/adduser/main.go
// Creates or updates a user in the database.
//
// Usage:
//
//	go run ./cmd/adduser -name Padraic -email padraic@example.com -password testing -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/padraicbc/nflodds/auth"
	"github.com/padraicbc/nflodds/config"
	bundb "github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/models"
)

func main() {
	name := flag.String("name", "", "display name (required)")
	email := flag.String("email", "", "login email (required)")
	password := flag.String("password", "", "plain-text password (required)")
	role := flag.String("role", models.RoleUser, "user or admin")
	flag.Parse()

	if *name == "" || *email == "" || *password == "" {
		log.Fatal("-name, -email and -password are required")
	}
	if *role != models.RoleUser && *role != models.RoleAdmin {
		log.Fatalf("-role must be %q or %q", models.RoleUser, models.RoleAdmin)
	}

	hash, err := auth.Hash(*password)
	if err != nil {
		log.Fatal("hash:", err)
	}

	ctx := context.Background()
	cfg := config.Load()
	db, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal("connect:", err)
	}
	defer db.Close()

	if err := bundb.CreateTables(ctx, db, nil); err != nil {
		log.Fatal("create tables:", err)
	}

	user := &models.User{
		Name:         *name,
		Email:        *email,
		Role:         *role,
		PasswordHash: hash,
	}
	if err := bundb.NewStore(db, nil).SaveUser(ctx, user); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("user %q saved with role %s\n", user.Email, user.Role)
}
