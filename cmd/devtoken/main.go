// Command devtoken mints an access token for local testing against a
// running server.  Production tokens come from the identity provider.
//
//	go run ./cmd/devtoken --user alice --role CUSTOMER
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
	"github.com/iliyamo/event-ticket-reservation/internal/utils"
)

func main() {
	user := pflag.StringP("user", "u", "", "subject (user id) of the token")
	role := pflag.StringP("role", "r", middleware.RoleCustomer, "CUSTOMER or ORGANIZER")
	pflag.Parse()
	if *user == "" {
		log.Fatal("devtoken: --user is required")
	}
	if *role != middleware.RoleCustomer && *role != middleware.RoleOrganizer {
		log.Fatalf("devtoken: unknown role %q", *role)
	}

	cfg := config.Load()
	tok, err := utils.NewAccessToken(cfg.JWTSecret, *user, *role, time.Duration(cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		log.Fatalf("devtoken: sign: %v", err)
	}
	fmt.Println(tok.Token)
	log.Printf("expires %s", tok.Exp.Format(time.RFC3339))
}
