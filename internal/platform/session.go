package platform

import (
	"context"
	"fmt"

	"github.com/ZJUSCT/OITrack/internal/database"
	"gorm.io/gorm"
)

// CredentialStore persists the shared session of each platform.
type CredentialStore interface {
	Get(ctx context.Context, platform string) (string, error)
	Save(ctx context.Context, platform, value string) error
}

type DBCredentialStore struct {
	db *gorm.DB
}

func NewDBCredentialStore(db *gorm.DB) *DBCredentialStore {
	return &DBCredentialStore{db: db}
}

func (s *DBCredentialStore) Get(ctx context.Context, platform string) (string, error) {
	return database.GetPlatformCredential(s.db.WithContext(ctx), platform)
}

func (s *DBCredentialStore) Save(ctx context.Context, platform, value string) error {
	return database.SavePlatformCredential(s.db.WithContext(ctx), platform, value)
}

// RefreshSession exchanges the stored session of p for a valid one and
// writes it back. The whole load-refresh-persist step runs under the
// platform's lock so concurrent syncs never refresh the same session twice.
func RefreshSession(ctx context.Context, locker Locker, store CredentialStore, p SessionProvider) (string, error) {
	unlock, err := locker.Lock(ctx, p.Name())
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", p.Name(), ErrUpstream, err)
	}
	defer unlock()

	old, err := store.Get(ctx, p.Name())
	if err != nil {
		return "", fmt.Errorf("load %s session: %w", p.Name(), err)
	}
	session, err := p.GetValidSession(ctx, old)
	if err != nil {
		return "", err
	}
	if session != old {
		if err := store.Save(ctx, p.Name(), session); err != nil {
			return "", fmt.Errorf("save %s session: %w", p.Name(), err)
		}
	}
	return session, nil
}
