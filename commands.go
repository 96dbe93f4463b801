package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/shopware/phpsymbols/internal/cache"
	"github.com/shopware/phpsymbols/internal/config"
	"github.com/shopware/phpsymbols/internal/observability"
	"github.com/shopware/phpsymbols/internal/server"
	"github.com/shopware/phpsymbols/internal/symbol"
	"github.com/shopware/phpsymbols/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	projectRoot string
	kinds       []string
	scope       string
	strategy    string
	watch       bool

	rootCmd = &cobra.Command{
		Use:          "phpsymbols",
		Short:        "Index the symbols and references of a PHP project",
		SilenceUsage: true,
	}

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Index the project and store the result in the cache",
		Args:  cobra.NoArgs,
		RunE:  runIndex,
	}

	findCmd = &cobra.Command{
		Use:   "find [name]",
		Short: "Find symbols by fully qualified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runFind,
	}

	refsCmd = &cobra.Command{
		Use:   "refs [name]",
		Short: "List the references to a name",
		Args:  cobra.ExactArgs(1),
		RunE:  runRefs,
	}

	membersCmd = &cobra.Command{
		Use:   "members [class]",
		Short: "List the members of a class, interface, trait or enum including inherited ones",
		Args:  cobra.ExactArgs(1),
		RunE:  runMembers,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Answer index queries over JSON-RPC on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", "", "project root (defaults to the working directory)")

	for _, cmd := range []*cobra.Command{findCmd, refsCmd, membersCmd} {
		cmd.Flags().StringSliceVar(&kinds, "kind", nil, "restrict results to these kinds (class, method, property, ...)")
	}
	refsCmd.Flags().StringVar(&scope, "scope", "", "only member references accessed on this class")
	membersCmd.Flags().StringVar(&strategy, "strategy", "override", "merge strategy for redeclared members: none, override, documented, base")
	serveCmd.Flags().BoolVar(&watch, "watch", true, "reindex files changed on disk")

	rootCmd.AddCommand(indexCmd, findCmd, refsCmd, membersCmd, serveCmd)
}

// session is an opened workspace with the resources backing it.
type session struct {
	ws      *workspace.Workspace
	cache   *cache.SQLiteCache
	metrics *observability.Server
}

func openSession() (*session, error) {
	root := projectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	migrated, err := cache.CheckAndMigrate(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	if migrated {
		log.Printf("Cache schema changed, rebuilding index in %s", cfg.CacheDir)
	}

	c, err := cache.NewSQLiteCache(filepath.Join(cfg.CacheDir, "index.db"))
	if err != nil {
		return nil, err
	}

	ws, err := workspace.New(root, cfg, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	s := &session{ws: ws, cache: c}
	if cfg.MetricsAddr != "" {
		s.metrics = observability.NewServer(cfg.MetricsAddr)
		if _, err := s.metrics.Start(); err != nil {
			log.Printf("Error starting metrics server: %v", err)
			s.metrics = nil
		}
	}

	return s, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.ws.Close(ctx); err != nil {
		log.Printf("Error closing workspace: %v", err)
	}
	if err := s.cache.Close(); err != nil {
		log.Printf("Error closing cache: %v", err)
	}
	if s.metrics != nil {
		if err := s.metrics.Stop(ctx); err != nil {
			log.Printf("Error stopping metrics server: %v", err)
		}
	}
}

// load restores the index from the cache and refreshes changed files.
func (s *session) load(ctx context.Context) (workspace.IndexStats, error) {
	if _, err := s.ws.Restore(ctx); err != nil {
		log.Printf("Error restoring index from cache: %v", err)
	}
	return s.ws.IndexAll(ctx)
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	stats, err := s.load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d files: %d indexed, %d unchanged, %d removed, %d symbols\n",
		stats.Found, stats.Indexed, stats.Unchanged, stats.Removed, s.ws.Symbols().SymbolCount())
	return nil
}

func parseKinds() ([]symbol.Kind, error) {
	parsed := make([]symbol.Kind, 0, len(kinds))
	for _, name := range kinds {
		kind := symbol.ParseKind(name)
		if kind == symbol.KindNone {
			return nil, fmt.Errorf("unknown kind %q", name)
		}
		parsed = append(parsed, kind)
	}
	return parsed, nil
}

func kindFilter() (symbol.Predicate, error) {
	parsed, err := parseKinds()
	if err != nil || len(parsed) == 0 {
		return nil, err
	}
	return symbol.KindPredicate(parsed...), nil
}

func runFind(cmd *cobra.Command, args []string) error {
	predicate, err := kindFilter()
	if err != nil {
		return err
	}

	return withLoadedSession(func(_ context.Context, s *session) error {
		printSymbols(cmd.OutOrStdout(), s.ws, s.ws.Symbols().Find(args[0], predicate))
		return nil
	})
}

func runMembers(cmd *cobra.Command, args []string) error {
	predicate, err := kindFilter()
	if err != nil {
		return err
	}

	return withLoadedSession(func(_ context.Context, s *session) error {
		members := s.ws.Symbols().FindMembers(args[0], symbol.ParseMergeStrategy(strategy), predicate)
		printSymbols(cmd.OutOrStdout(), s.ws, members)
		return nil
	})
}

func runRefs(cmd *cobra.Command, args []string) error {
	wantKinds, err := parseKinds()
	if err != nil {
		return err
	}
	wantScope := strings.TrimPrefix(scope, "\\")

	return withLoadedSession(func(ctx context.Context, s *session) error {
		refs := s.ws.References().Find(ctx, args[0], func(ref *symbol.Reference) bool {
			if len(wantKinds) > 0 && !slices.Contains(wantKinds, ref.Kind) {
				return false
			}
			return wantScope == "" || strings.EqualFold(strings.TrimPrefix(ref.Scope, "\\"), wantScope)
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, ref := range refs {
			loc, _ := s.ws.Symbols().Location(&ref.Location)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ref.Kind, ref.Name, ref.Scope, position(s.ws, loc))
		}
		return w.Flush()
	})
}

func withLoadedSession(fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if _, err := s.load(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

func printSymbols(out io.Writer, ws *workspace.Workspace, symbols []*symbol.Symbol) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, sym := range symbols {
		loc, _ := ws.Symbols().SymbolLocation(sym)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", sym.Kind, sym.Name, sym.Type, sym.Modifiers, position(ws, loc))
	}
	_ = w.Flush()
}

func position(ws *workspace.Workspace, loc symbol.URILocation) string {
	if loc.URI == "" {
		return "-"
	}

	path := workspace.URIToPath(loc.URI)
	if rel, err := filepath.Rel(ws.Root(), path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	return fmt.Sprintf("%s:%d:%d", path, loc.Range.Start.Line+1, loc.Range.Start.Character+1)
}

func runServe(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if err := server.NewServer(s.ws, watch).Start(os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
