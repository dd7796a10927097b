package discovery

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"restic-backup-service/src/backend"
	"restic-backup-service/src/repository"
)

// DefaultConcurrency bounds concurrent restic processes when no value is
// configured.
const DefaultConcurrency = 4

// resticInternal are the prefixes restic creates inside a repository.
var resticInternal = map[string]struct{}{
	"data":      {},
	"index":     {},
	"keys":      {},
	"snapshots": {},
	"locks":     {},
}

// SnapshotSource lists the snapshots of one repository.
type SnapshotSource interface {
	Snapshots(ctx context.Context, repo string) ([]repository.Snapshot, error)
}

// Locator maps an address to the URL the snapshot engine understands.
type Locator interface {
	RepositoryURL(addr repository.Address) string
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(repository.Address) string

func (f LocatorFunc) RepositoryURL(addr repository.Address) string { return f(addr) }

// Result is the outcome of scanning a host. Repos and Failures are sorted by
// address.
type Result struct {
	Repos    []repository.Data
	Failures []*ScanError
}

// Scanner discovers repositories under the repository base and reads their
// snapshots with bounded concurrency.
type Scanner struct {
	lister      backend.Lister
	source      SnapshotSource
	locator     Locator
	cache       *Cache
	concurrency int
	log         zerolog.Logger
}

// NewScanner wires a Scanner. A nil cache gets a fresh one; concurrency below
// one falls back to DefaultConcurrency.
func NewScanner(lister backend.Lister, source SnapshotSource, locator Locator, cache *Cache, concurrency int, log zerolog.Logger) *Scanner {
	if cache == nil {
		cache = NewCache()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Scanner{
		lister:      lister,
		source:      source,
		locator:     locator,
		cache:       cache,
		concurrency: concurrency,
		log:         log.With().Str("component", "discovery").Logger(),
	}
}

// Cache returns the cache populated by this scanner.
func (s *Scanner) Cache() *Cache { return s.cache }

// DiscoverHosts lists the hosts that have repositories under the base.
func (s *Scanner) DiscoverHosts(ctx context.Context) ([]string, error) {
	hosts, err := s.lister.List(ctx, "")
	if err != nil {
		return nil, &DiscoveryError{Op: "list hosts", Err: err}
	}
	return hosts, nil
}

// ListRepositories enumerates the repository addresses of host without
// reading any snapshots. Unknown category prefixes are logged and skipped.
func (s *Scanner) ListRepositories(ctx context.Context, host string) ([]repository.Address, error) {
	tokens, err := s.list(ctx, host)
	if err != nil {
		return nil, err
	}
	var addrs []repository.Address
	for _, token := range tokens {
		cat, ok := repository.ParseCategory(token)
		if !ok {
			s.log.Warn().Str("host", host).Str("prefix", token).Msg("skipping unknown category prefix")
			continue
		}
		catPrefix := host + "/" + token
		children, err := s.list(ctx, catPrefix)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if cat != repository.UserHome {
				addrs = append(addrs, repository.Address{Host: host, Category: cat, Segment: child})
				continue
			}
			userAddrs, err := s.listUser(ctx, host, catPrefix, child)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, userAddrs...)
		}
	}
	repository.SortAddresses(addrs)
	return addrs, nil
}

// listUser expands user_home/<user>. The user prefix is itself a repository
// (a backup of /home/<user>) when it holds restic's own keys directory; its
// other children are repositories of paths below the home directory. A child
// named like a restic directory is a repository when it lists its own keys.
func (s *Scanner) listUser(ctx context.Context, host, catPrefix, user string) ([]repository.Address, error) {
	userPrefix := catPrefix + "/" + user
	children, err := s.list(ctx, userPrefix)
	if err != nil {
		return nil, err
	}
	leaf := map[string]bool{}
	for _, child := range children {
		if _, internal := resticInternal[child]; !internal {
			continue
		}
		grand, err := s.list(ctx, userPrefix+"/"+child)
		if err != nil {
			return nil, err
		}
		leaf[child] = !contains(grand, "keys")
	}
	isRepo := leaf["keys"]

	var addrs []repository.Address
	if isRepo {
		addrs = append(addrs, repository.Address{Host: host, Category: repository.UserHome, Segment: user})
	}
	for _, child := range children {
		if leaf[child] && isRepo {
			continue
		}
		addrs = append(addrs, repository.Address{Host: host, Category: repository.UserHome, Segment: user + "/" + child})
	}
	if len(addrs) == 0 {
		s.log.Warn().Str("host", host).Str("user", user).Msg("user prefix holds no repositories")
	}
	return addrs, nil
}

// ScanHost lists and scans every repository of host.
func (s *Scanner) ScanHost(ctx context.Context, host string) (Result, error) {
	addrs, err := s.ListRepositories(ctx, host)
	if err != nil {
		return Result{}, err
	}
	s.log.Debug().Str("host", host).Int("repositories", len(addrs)).Msg("scanning repositories")
	return s.Scan(ctx, addrs)
}

// Scan reads snapshots for each address, at most s.concurrency at a time.
// Per-repository failures are collected in Result.Failures and never stop
// other scans. The only error returned is a CacheConsistencyError.
func (s *Scanner) Scan(ctx context.Context, addrs []repository.Address) (Result, error) {
	addrs = dedupe(addrs)
	type outcome struct {
		data repository.Data
		err  error
	}
	outcomes := make([]outcome, len(addrs))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			d, err := s.scanOne(ctx, addr)
			outcomes[i] = outcome{data: d, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, o := range outcomes {
		if o.err == nil {
			res.Repos = append(res.Repos, o.data)
			continue
		}
		var consistency *CacheConsistencyError
		if errors.As(o.err, &consistency) {
			return Result{}, consistency
		}
		res.Failures = append(res.Failures, &ScanError{Address: addrs[i], Err: o.err})
		s.log.Warn().Err(o.err).Str("repository", addrs[i].String()).Msg("repository scan failed")
	}
	repository.SortData(res.Repos)
	sort.Slice(res.Failures, func(i, j int) bool {
		return repository.Less(res.Failures[i].Address, res.Failures[j].Address)
	})
	return res, nil
}

func (s *Scanner) scanOne(ctx context.Context, addr repository.Address) (repository.Data, error) {
	if d, ok := s.cache.Get(addr); ok {
		return d, nil
	}
	if err := ctx.Err(); err != nil {
		return repository.Data{}, err
	}
	snaps, err := s.source.Snapshots(ctx, s.locator.RepositoryURL(addr))
	if err != nil {
		return repository.Data{}, err
	}
	d := repository.NewData(addr, snaps)
	if err := s.cache.Put(d); err != nil {
		return repository.Data{}, err
	}
	return d, nil
}

func (s *Scanner) list(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.lister.List(ctx, prefix)
	if err != nil {
		return nil, &DiscoveryError{Op: "list", Prefix: prefix, Err: err}
	}
	return names, nil
}

func dedupe(addrs []repository.Address) []repository.Address {
	seen := make(map[repository.Address]struct{}, len(addrs))
	out := make([]repository.Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
