package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/apiclient"
	"github.com/sells-group/valuation-cli/internal/config"
	"github.com/sells-group/valuation-cli/internal/store"
	"github.com/sells-group/valuation-cli/internal/wizard"
)

// wizardEnv bundles the local snapshot store, the API client and the wizard
// for one command invocation or one shell session.
type wizardEnv struct {
	local  *store.LocalStore
	client *apiclient.Client
	wiz    *wizard.Store
	// active is false until a report has been started or resumed.
	active bool
}

type envKey struct{}

func newAPIClient(c *config.Config, tokens apiclient.TokenStore) *apiclient.Client {
	retries := c.API.MaxRetries
	if retries == 0 {
		retries = -1
	}
	opts := apiclient.Options{
		BaseURL:        c.API.BaseURL,
		Timeout:        c.API.Timeout,
		MaxRetries:     retries,
		RetryBaseDelay: c.API.RetryBaseDelay,
		CacheTTL:       c.API.CacheTTL,
		RateLimit:      c.API.RateLimit,
		RateWindow:     c.API.RateWindow,
		Tokens:         tokens,
		OnUnauthorized: func(loginPath string) {
			zap.L().Warn("session expired, run `valuation-cli login` again", zap.String("login_path", loginPath))
		},
	}
	if c.API.LogRequests {
		opts.Interceptors = apiclient.LoggingInterceptors()
	}
	return apiclient.New(opts)
}

// openWizardEnv opens the local store and resumes any persisted wizard
// session.
func openWizardEnv(ctx context.Context, c *config.Config) (*wizardEnv, error) {
	local, err := store.NewLocalStore(c.Store.LocalPath)
	if err != nil {
		return nil, eris.Wrap(err, "open local store")
	}
	if err := local.Migrate(ctx); err != nil {
		local.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate local store")
	}

	client := newAPIClient(c, local)
	wiz := wizard.New(wizard.Options{
		HistoryLimit: c.Wizard.HistoryLimit,
		Persister:    local,
		Backend:      client,
	})
	found, err := wiz.Hydrate(ctx)
	if err != nil {
		local.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "resume wizard")
	}
	return &wizardEnv{local: local, client: client, wiz: wiz, active: found}, nil
}

func (e *wizardEnv) Close() error {
	return e.local.Close()
}

func (e *wizardEnv) requireActive() error {
	if !e.active {
		return eris.New("no report in progress; run `valuation-cli report new` or `report load <id>`")
	}
	return nil
}

// withEnv runs fn against the shell session's env when there is one,
// otherwise against a freshly opened env that is closed afterwards.
func withEnv(cmd *cobra.Command, fn func(env *wizardEnv) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if env, ok := ctx.Value(envKey{}).(*wizardEnv); ok {
		return fn(env)
	}
	if cfg == nil {
		return eris.New("config not loaded")
	}
	if err := cfg.Validate("wizard"); err != nil {
		return err
	}
	env, err := openWizardEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close() //nolint:errcheck
	return fn(env)
}

// withActiveEnv is withEnv for commands that need a report in progress.
func withActiveEnv(cmd *cobra.Command, fn func(env *wizardEnv) error) error {
	return withEnv(cmd, func(env *wizardEnv) error {
		if err := env.requireActive(); err != nil {
			return err
		}
		return fn(env)
	})
}

// reportErrors surfaces errors the wizard recorded during the last call and
// clears them.
func reportErrors(env *wizardEnv) error {
	errs := env.wiz.Errors()
	if len(errs) == 0 {
		return nil
	}
	env.wiz.ClearErrors()
	return eris.New(errs[len(errs)-1])
}
