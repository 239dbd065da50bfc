package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/withapp/crush/internal/auth/cache"
	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/internal/auth/store/drivers/sqlite"
	"github.com/withapp/crush/pkg/jwtx"
)

const (
	testIssuer   = "with"
	testAudience = "crush"
)

var testSecret = []byte("test-signing-secret-0123456789ab")

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newTestCache(t *testing.T) cache.Store {
	t.Helper()

	m := cache.NewMemory()
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTokenService() *TokenService {
	return &TokenService{
		Codec:      jwtx.NewCodec(testSecret, testIssuer, []string{testAudience}),
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 672 * time.Hour,
	}
}

func seedIdentity(t *testing.T, st store.Store, roles ...string) domain.Identity {
	t.Helper()

	if len(roles) == 0 {
		roles = []string{"core:user"}
	}
	ident := domain.Identity{
		ID:            uuid.NewString(),
		Name:          "Alex",
		Email:         uuid.NewString() + "@example.com",
		EmailVerified: true,
		Roles:         roles,
	}
	require.NoError(t, st.Identities().CreateIdentity(context.Background(), ident))
	return ident
}
