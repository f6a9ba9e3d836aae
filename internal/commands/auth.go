package commands

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/authsession"
)

// vatScopes are the authority permissions the submission pipeline needs.
var vatScopes = []string{"read:vat", "write:vat"}

// session builds the OAuth2 session from the project configuration.
func (a *app) session() *authsession.Session {
	return authsession.NewSession(authsession.Config{
		ClientID:     a.cfg.HMRC.ClientID,
		ClientSecret: a.cfg.HMRC.ClientSecret,
		AuthURL:      a.cfg.HMRC.Endpoint + "/oauth/authorize",
		TokenURL:     a.cfg.HMRC.Endpoint + "/oauth/token",
		RedirectURI:  a.cfg.HMRC.RedirectURI,
		Scopes:       vatScopes,
	}, authsession.StoreTokens{Store: a.store}, nil, slog.Default())
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize with the tax authority",
	}
	cmd.AddCommand(newAuthURLCommand())
	cmd.AddCommand(newAuthExchangeCommand())
	return cmd
}

func newAuthURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the consent URL to visit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Println(app.session().AuthorizationURL(uuid.NewString()))
			return nil
		},
	}
}

func newAuthExchangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code for tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.session().Acquire(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Authorized")
			return nil
		},
	}
}
