package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/pharmacy/pkg/cryptox"
	"github.com/aussiebroadwan/pharmacy/pkg/jwtx"
)

const sessionKeyID = "session-1"

// InitSessionSigner loads the Ed25519 key that signs session tokens.
//
// Key sources:
//   - SessionKeyFile empty: a key is generated on startup and kept only in
//     memory. Tokens issued before a restart stop verifying.
//   - SessionKeyFile set but missing: a key is generated and written there
//     (mode 0600) so later starts reuse it.
//   - SessionKeyFile present: the PEM key is loaded as is.
func InitSessionSigner(cfg Config, logger *slog.Logger) (*jwtx.Signer, error) {
	if cfg.SessionKeyFile == "" {
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		logger.Warn("no SESSION_KEY_FILE configured, using an ephemeral session key")
		return jwtx.NewSignerEdDSA(sessionKeyID, pemKey)
	}

	pemKey, created, err := cryptox.LoadOrCreateEd25519Key(cfg.SessionKeyFile)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("generated session key", "path", cfg.SessionKeyFile)
	} else {
		logger.Info("loaded session key", "path", cfg.SessionKeyFile)
	}

	signer, err := jwtx.NewSignerEdDSA(sessionKeyID, pemKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session key %s: %w", cfg.SessionKeyFile, err)
	}
	return signer, nil
}
