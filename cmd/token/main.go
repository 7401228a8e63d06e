// Command token mints a bearer token for the API. Tokens are issued out
// of band with the shared signing secret; the subject identifies the job
// owner the token grants access to.
//
// Usage:
//
//	REEL_AUTH_JWT_SECRET=... token [-owner <uuid>] [-lifetime-mins <n>]
//
// When -owner is omitted a fresh owner ID is generated and printed
// alongside the token.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/phrazzld/reel-api/internal/config"
	"github.com/phrazzld/reel-api/internal/service/auth"
)

func main() {
	ownerFlag := flag.String("owner", "", "owner UUID the token is issued for (default: generate one)")
	lifetimeMins := flag.Int("lifetime-mins", 60, "token lifetime in minutes")
	flag.Parse()

	if err := run(os.Stdout, *ownerFlag, *lifetimeMins); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, ownerFlag string, lifetimeMins int) error {
	secret := os.Getenv("REEL_AUTH_JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("REEL_AUTH_JWT_SECRET must be set")
	}
	if lifetimeMins <= 0 {
		return fmt.Errorf("lifetime must be positive, got %d", lifetimeMins)
	}

	ownerID := uuid.New()
	if ownerFlag != "" {
		parsed, err := uuid.Parse(ownerFlag)
		if err != nil {
			return fmt.Errorf("invalid owner ID %q: %w", ownerFlag, err)
		}
		ownerID = parsed
	}

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:         secret,
		TokenLifetimeMins: lifetimeMins,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	token, err := jwtService.GenerateToken(context.Background(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Fprintf(out, "Owner: %s\nToken: %s\n", ownerID, token)
	return nil
}
