// sessionctl sets, shows, or deletes wallet session credentials in the
// configured backend. The platform normally maintains these; this tool
// covers local setups and credential rotation drills.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	bridge "github.com/Ashenafi-pixel/gamecrafter-wallet-bridge"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/config"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/session"
)

func main() {
	playerID := flag.String("player", "", "Player id the credentials belong to")
	userID := flag.String("user", "", "Upstream user id")
	token := flag.String("token", "", "Signing secret (auth token)")
	clientURL := flag.String("url", "", "Upstream wallet endpoint URL")
	ttl := flag.Duration("ttl", 0, "Expiry for redis-backed sessions (0 = none)")
	del := flag.Bool("delete", false, "Delete the session instead of setting it")
	show := flag.Bool("show", false, "Print the resolved credentials and exit")
	flag.Parse()

	if *playerID == "" {
		fmt.Fprintln(os.Stderr, "missing required -player argument")
		os.Exit(1)
	}

	_ = godotenv.Load(".env")
	cfg := config.Load()

	if err := run(cfg, *playerID, *userID, *token, *clientURL, *ttl, *del, *show); err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, playerID, userID, token, clientURL string, ttl time.Duration, del, show bool) error {
	ctx := context.Background()
	creds := session.Credentials{UserID: userID, AuthToken: token, ClientURL: clientURL}

	if cfg.SessionBackend == "redis" {
		r := session.NewRedisResolver(cfg.RedisAddr)
		if err := r.Ping(ctx); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		switch {
		case show:
			return print(r.Resolve(ctx, playerID))
		case del:
			return r.Delete(ctx, playerID)
		default:
			if err := requireCreds(creds); err != nil {
				return err
			}
			return r.Set(ctx, playerID, creds, ttl)
		}
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set; cannot connect to DB")
	}
	db, err := bridge.OpenDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	r := session.NewPostgresResolver(db)
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}
	switch {
	case show:
		return print(r.Resolve(ctx, playerID))
	case del:
		return r.Delete(ctx, playerID)
	default:
		if err := requireCreds(creds); err != nil {
			return err
		}
		return r.Set(ctx, playerID, creds)
	}
}

func requireCreds(creds session.Credentials) error {
	if creds.UserID == "" || creds.AuthToken == "" || creds.ClientURL == "" {
		return fmt.Errorf("set requires -user, -token and -url")
	}
	return nil
}

func print(creds session.Credentials, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("user_id=%s client_url=%s auth_token=%s\n", creds.UserID, creds.ClientURL, creds.AuthToken)
	return nil
}
