// Command issue_token mints an operator JWT for the knowledge API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"whatsapp-orderbot-be/internal/config"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.Keys.JwtSecret == "" {
		color.Red("JWT_SECRET is not set")
		os.Exit(1)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   *subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	})

	signed, err := token.SignedString([]byte(cfg.Keys.JwtSecret))
	if err != nil {
		color.Red("Failed to sign token: %v", err)
		os.Exit(1)
	}

	color.Cyan("Token for %q valid until %s", *subject, now.Add(*ttl).Format(time.RFC3339))
	fmt.Println(signed)
}
