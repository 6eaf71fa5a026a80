package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spotmirror/spotmirror/internal/repositories"
	"github.com/spotmirror/spotmirror/internal/server"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/spotmirror/spotmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authorization code flow.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the code for tokens and persists them to the database.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if r.config.Credentials.Spotify.ClientID == "" || r.config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	if err := r.ensureRemote(); err != nil {
		return err
	}

	state := shared.GenerateID()
	authURL := r.tokens.AuthCodeURL(state)

	handler := server.NewOAuthHandler(r.tokens, state)
	callback := server.NewCallbackServer(r.config.Server, handler, r.logger)
	callback.Start()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	result, err := callback.Wait(waitCtx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved (expires %s)\n\n", result.Token.Expiry.Format(time.RFC3339))
	r.writePlain("You can now use: spotmirror pull\n")

	return nil
}

// AuthStatus reports the stored token state for each grant.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureDatabase(); err != nil {
		return err
	}

	store := repositories.NewTokenRepository(r.store)
	for _, grant := range []services.Grant{services.GrantRegular, services.GrantExtended} {
		token, err := store.LoadToken(string(grant))
		if err != nil {
			r.writePlain("%s: no stored token\n", grant)
			continue
		}

		if token.Valid() {
			r.writePlain("%s: ✓ valid until %s\n", grant, token.Expiry.Format(time.RFC3339))
		} else {
			r.writePlain("%s: ✗ expired at %s", grant, token.Expiry.Format(time.RFC3339))
			if token.RefreshToken != "" {
				r.writePlain(" (refreshable)")
			}
			r.writePlain("\n")
		}
	}

	return nil
}
