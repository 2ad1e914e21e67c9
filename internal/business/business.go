package business

import (
	"context"
	"fmt"
	"net/http"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	"github.com/lazari03/pyetdoktorin-sessions/internal/audit"
	"github.com/lazari03/pyetdoktorin-sessions/internal/audit/auditsql"
	"github.com/lazari03/pyetdoktorin-sessions/internal/business/server"
	"github.com/lazari03/pyetdoktorin-sessions/internal/config"
	"github.com/lazari03/pyetdoktorin-sessions/internal/identity"
	"github.com/lazari03/pyetdoktorin-sessions/internal/session"
	"github.com/lazari03/pyetdoktorin-sessions/internal/session/sessionvalkey"
)

// Main starts the public session API server.
func Main(ctx context.Context, cfg *config.Config) error {
	sessionManager, recorder, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}

	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, sessionManager, recorder)
}

func initSessionManager(ctx context.Context, cfg *config.Config) (_ *session.Manager, _ audit.Recorder, closeFn func(), _ error) {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	valkeyClient, err := newValKeyClient(cfg)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	guard := sessionvalkey.NewGuard(valkeyClient, cfg.ValKey.Prefix)
	verifier := identity.NewJWTVerifier(&cfg.Verifier, http.DefaultClient)
	recorder := audit.NewAsyncRecorder(ctx, auditsql.NewRepository(db))

	sessionManager, err := session.NewManager(&cfg.Session, verifier, guard, recorder)
	if err != nil {
		recorder.Close()
		valkeyClient.Close()
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating session manager: %w", err)
	}

	closeFn = func() {
		recorder.Close()
		valkeyClient.Close()
		db.Close()
	}

	return sessionManager, recorder, closeFn, nil
}

func newValKeyClient(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
