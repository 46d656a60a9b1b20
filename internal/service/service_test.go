package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/repository"
	"github.com/dittygoops/helpdesk-backend/pkg/database"
)

// testEnv wires the full service stack over a throwaway sqlite store, with a
// controllable clock for the OTP service.
type testEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	groups    repository.GroupRepository
	articles  repository.ArticleRepository
	otp       *OTPService
	directory *DirectoryService
	article   *ArticleService
	clock     *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.ConnectSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := logging.NewDefault()
	clock := &fakeClock{now: time.Now()}

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	articles := repository.NewArticleRepository(db)

	otp := NewOTPService(repository.NewOTPRepository(db), log)
	otp.now = clock.Now

	return &testEnv{
		db:        db,
		users:     users,
		groups:    groups,
		articles:  articles,
		otp:       otp,
		directory: NewDirectoryService(db, users, otp, log),
		article:   NewArticleService(articles, groups, log),
		clock:     clock,
	}
}
