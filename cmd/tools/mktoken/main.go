// Command mktoken mints a development access token for exercising the
// checkout endpoint locally. Usage:
//
//	mktoken <user-id> [ttl]
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/noah-isme/backend-caseshop/internal/auth"
	"github.com/noah-isme/backend-caseshop/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mktoken <user-id> [ttl]")
		os.Exit(2)
	}
	userID := os.Args[1]
	ttl := time.Hour
	if len(os.Args) > 2 {
		parsed, err := time.ParseDuration(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid ttl %q: %v\n", os.Args[2], err)
			os.Exit(2)
		}
		ttl = parsed
	}

	cfg := config.MustLoad()
	svc, err := auth.NewService(auth.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	signed, expiry, err := svc.SignAccessToken(userID, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(signed)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiry.Format(time.RFC3339))
}
