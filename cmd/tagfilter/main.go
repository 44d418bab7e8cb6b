package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oyvindstegard/ox-tagfilter/internal/api"
	"github.com/oyvindstegard/ox-tagfilter/internal/collect"
	"github.com/oyvindstegard/ox-tagfilter/internal/config"
	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
	"github.com/oyvindstegard/ox-tagfilter/internal/selstore"
	"github.com/oyvindstegard/ox-tagfilter/internal/session"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, commit)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "tagfilter",
		Short: "Tag filtering for exported outline documents",
		Long: "tagfilter serves and filters statically exported outline documents\n" +
			"(org HTML exports, markdown, docx) by their heading tags and free-text\n" +
			"search, with persisted tag selections.",
	}
	rootCmd.Version = buildVersion()

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(filterCmd())
	rootCmd.AddCommand(tagsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP filtering service",
		Example: "  tagfilter serve\n" +
			"  tagfilter serve --config tagfilter.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	return cmd
}

func runServe(configPath string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := selstore.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open selection store: %w", err)
	}

	reg := api.NewRegistry(cfg.DocTTL)
	srv := api.NewServer(reg, store, log, cfg)
	srv.StartCleanup(ctx)

	if cfg.DocsDir != "" {
		if err := srv.LoadDocsDir(ctx, cfg.DocsDir); err != nil {
			return err
		}
		if cfg.WatchDocs {
			go func() {
				if err := srv.WatchDocsDir(ctx, cfg.DocsDir); err != nil && ctx.Err() == nil {
					log.Error("docs watcher stopped", "error", err)
				}
			}()
		}
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		reg.CloseAll()
		store.Close()
	}()

	log.Info("starting tagfilter", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func filterCmd() *cobra.Command {
	var (
		tags     []string
		search   string
		storeLoc string
		render   bool
	)
	cmd := &cobra.Command{
		Use:   "filter <file>",
		Short: "Filter a document once and print the matches",
		Long: "Load an exported document, apply a tag selection and search query,\n" +
			"and print the matching headings. With --render, write the filtered\n" +
			"HTML to stdout instead. With --store, the selection is persisted and\n" +
			"a previously saved selection is restored before flags apply.",
		Example: "  tagfilter filter notes.html --tag work --tag urgent\n" +
			"  tagfilter filter notes.html --search dragon --render > filtered.html",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(args[0], tags, search, storeLoc, render)
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Require this tag (repeatable, AND semantics)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Free-text heading search")
	cmd.Flags().StringVar(&storeLoc, "store", "", "Selection store location (file, *.db, or http URL)")
	cmd.Flags().BoolVar(&render, "render", false, "Write the filtered document HTML to stdout")
	return cmd
}

func runFilter(path string, tags []string, search, storeLoc string, render bool) error {
	ctx := context.Background()

	doc, err := loadFile(path)
	if err != nil {
		return err
	}
	store, err := selstore.Open(storeLoc)
	if err != nil {
		return fmt.Errorf("open selection store: %w", err)
	}
	defer store.Close()

	sess := session.Open(ctx, doc, session.Options{
		Store: store,
		Key:   path,
	})
	defer sess.Close()

	res := sess.Result()
	if len(tags) > 0 || search != "" {
		selected := sess.State().SortedTags()
		selected = append(selected, tags...)
		res = sess.SetSelection(ctx, selected, search)
	}

	if render {
		return outline.Render(doc, res.Visible, os.Stdout)
	}

	if !res.Filtered {
		fmt.Println("no filter active; all headings visible")
	}
	for _, h := range res.Matches {
		n := doc.Node(h)
		indent := ""
		if n.Level > 1 {
			indent = fmt.Sprintf("%*s", (n.Level-1)*2, "")
		}
		fmt.Printf("%s%s\n", indent, collect.OwnText(doc, h))
	}
	if res.Filtered && len(res.Matches) == 0 {
		fmt.Fprintln(os.Stderr, "no headings match")
	}
	return nil
}

func tagsCmd() *cobra.Command {
	var keywords bool
	cmd := &cobra.Command{
		Use:     "tags <file>",
		Short:   "Print every tag found in a document",
		Example: "  tagfilter tags notes.html",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadFile(args[0])
			if err != nil {
				return err
			}
			meta := collect.Collect(doc)
			values := meta.Universe
			if keywords {
				values = meta.Keywords
			}
			for _, v := range values {
				fmt.Println(v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keywords, "keywords", false, "Print search tokens instead of tags")
	return cmd
}

func loadFile(path string) (*outline.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return outline.Load(f, filepath.Base(path))
}
