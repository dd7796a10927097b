package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"restic-backup-service/src/backend"
	dir "restic-backup-service/src/backend/directory"
	s3backend "restic-backup-service/src/backend/s3"
	"restic-backup-service/src/config"
	"restic-backup-service/src/discovery"
	"restic-backup-service/src/interactive"
	"restic-backup-service/src/logging"
	"restic-backup-service/src/restic"
	"restic-backup-service/src/target"
)

type listerFactory func(ctx context.Context, tgt target.Target, cfg config.Config) (backend.Lister, error)

var newListerFn listerFactory = newLister

var newSelectorFn = func(cmd *cobra.Command) interactive.Selector {
	return interactive.NewSurvey()
}

// services are the collaborators shared by the repository commands of one
// invocation.
type services struct {
	cfg        config.Config
	log        zerolog.Logger
	logCloser  io.Closer
	invocation string
	target     target.Target
	lister     backend.Lister
	engine     Engine
	scanner    *discovery.Scanner
}

func (s *services) Close() {
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
}

// loadServices resolves configuration, logging, the repository base and the
// restic engine. The base is listed once so bad credentials fail before any
// workflow starts.
func loadServices(cmd *cobra.Command) (*services, error) {
	ctx := commandContext(cmd)
	cfg, err := config.Load(getConfigOptions(cmd))
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Root().PersistentFlags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	s := &services{cfg: cfg, invocation: uuid.NewString()}
	s.log, s.logCloser, err = logging.Setup(cfg.Logging, cmd.ErrOrStderr(), s.invocation)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*services, error) {
		s.Close()
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}
	if s.target, err = target.Parse(cfg.RepoBase); err != nil {
		return fail(err)
	}
	if s.lister, err = newListerFn(ctx, s.target, cfg); err != nil {
		return fail(err)
	}
	if _, err := s.lister.List(ctx, ""); err != nil {
		return fail(&discovery.DiscoveryError{Op: "validate credentials", Prefix: s.target.String(), Err: err})
	}

	bin, err := checkResticBinary(cmd, true)
	if err != nil {
		return fail(err)
	}
	s.engine, err = newEngineFn(bin, restic.Credentials{
		Password:        cfg.ResticPassword,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Region:          cfg.Region,
	}, s.log)
	if err != nil {
		return fail(err)
	}
	s.scanner = discovery.NewScanner(s.lister, s.engine, s.target, discovery.NewCache(), cfg.Concurrency, s.log)
	s.log.Debug().Str("base", s.target.String()).Str("host", cfg.Hostname).Int("concurrency", cfg.Concurrency).Msg("services ready")
	return s, nil
}

func newLister(ctx context.Context, tgt target.Target, cfg config.Config) (backend.Lister, error) {
	switch tgt.Scheme {
	case "local":
		if err := os.MkdirAll(tgt.DirPath, 0o700); err != nil {
			return nil, fmt.Errorf("create repository base: %w", err)
		}
		return dir.New(tgt.DirPath)
	case "s3":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = tgt.Endpoint
		}
		return s3backend.New(ctx, s3backend.Options{
			Endpoint:        endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Bucket:          tgt.Bucket,
			BasePath:        tgt.BasePath,
		})
	}
	return nil, fmt.Errorf("unsupported backend: %s", tgt.Scheme)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func outputFlag(cmd *cobra.Command) string {
	out, _ := cmd.Flags().GetString("output")
	return out
}

// SetListerFactoryForTest replaces the repository base lister constructor.
func SetListerFactoryForTest(fn func(context.Context, target.Target, config.Config) (backend.Lister, error)) func() {
	prev := newListerFn
	newListerFn = fn
	return func() {
		newListerFn = prev
	}
}

// SetSelectorForTest makes every interactive prompt use sel.
func SetSelectorForTest(sel interactive.Selector) func() {
	prev := newSelectorFn
	newSelectorFn = func(*cobra.Command) interactive.Selector { return sel }
	return func() {
		newSelectorFn = prev
	}
}
