package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/strata/internal/pipeline"
	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/table"
)

// StoreOptions configures BuildStore.
// Layout defaults to compressed and ChunkSize to 64.
type StoreOptions struct {
	Layout       columnar.Layout
	ChunkSize    int
	SkipZoneMaps bool
	KeepPlain    bool
}

// BuildStore writes tbl into a fresh directory and opens it.
func BuildStore(t testing.TB, tbl *table.Table, opts StoreOptions) *columnar.Store {
	t.Helper()
	if opts.Layout == "" {
		opts.Layout = columnar.LayoutCompressed
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 64
	}

	dir := filepath.Join(t.TempDir(), string(opts.Layout))
	_, err := pipeline.Build(context.Background(), tbl, pipeline.Config{
		Dir:           dir,
		Layout:        opts.Layout,
		ChunkSize:     opts.ChunkSize,
		BuildZoneMaps: !opts.SkipZoneMaps,
		KeepPlain:     opts.KeepPlain,
		Workers:       2,
	}, nil)
	require.NoError(t, err)

	store, err := columnar.Open(dir)
	require.NoError(t, err)
	return store
}

// StoreSuite provides a context and a log-backed environment for suites that
// build stores.
type StoreSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *StoreSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
}

// TearDownSuite runs after all tests in the suite
func (s *StoreSuite) TearDownSuite() {
	s.cancel()
	s.T().Logf("suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *StoreSuite) Context() context.Context {
	return s.ctx
}

// Build writes tbl into a temporary store.
func (s *StoreSuite) Build(tbl *table.Table, opts StoreOptions) *columnar.Store {
	return BuildStore(s.T(), tbl, opts)
}
