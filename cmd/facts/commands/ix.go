package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/coerce"
	"github.com/teranos/facts/entity"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/ix"
	"github.com/teranos/facts/ix/filesource"
	"github.com/teranos/facts/ix/jsonapi"
	"github.com/teranos/facts/logger"
)

// IxCmd represents the ix command - ingestion operations
var IxCmd = &cobra.Command{
	Use:   "ix",
	Short: glyphIX + " Ingest fragments into observations",
	Long: glyphIX + ` ix - Ingest fragments into observations

Fragments come from local JSON/YAML files or from JSON APIs configured
under [sources.<name>] in facts.toml. Every fragment is coerced by the
rule for its field (ingest.rules_path) and stored as an observation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var ixRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an ingestion",
	Long: `Fetch fragments for each entity from every given source, coerce them and
store the observations.

Examples:
  facts ix run --file fragments.yaml
  facts ix run --api worldbank --entity Ukraine --entity Poland
  facts ix run --file fragments.yaml --rules rules.toml --watch
  facts ix run --file fragments.yaml --json --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return err
		}
		opts := ixOpts
		if opts.rulesPath == "" {
			opts.rulesPath = cfg.Ingest.RulesPath
		}

		var emitter ix.ProgressEmitter
		if opts.json {
			emitter = ix.NewJSONEmitter(cmd.OutOrStdout())
		} else {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			emitter = ix.NewCLIEmitter(verbosity + 1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := runIx(ctx, cfg, opts, emitter); err != nil {
			return err
		}
		if !opts.watch {
			return nil
		}
		return watchRules(ctx, cfg, opts, emitter)
	},
}

type ixOptions struct {
	files     []string
	apis      []string
	entities  []string
	rulesPath string
	json      bool
	watch     bool
	dryRun    bool
}

var ixOpts ixOptions

func init() {
	ixRunCmd.Flags().StringArrayVar(&ixOpts.files, "file", nil, "Fragment file (.json, .yaml); repeatable")
	ixRunCmd.Flags().StringArrayVar(&ixOpts.apis, "api", nil, "Configured JSON source name; repeatable")
	ixRunCmd.Flags().StringArrayVarP(&ixOpts.entities, "entity", "e", nil, "Entity title; repeatable (default: every entity in the files)")
	ixRunCmd.Flags().StringVar(&ixOpts.rulesPath, "rules", "", "Rule table (default: ingest.rules_path)")
	ixRunCmd.Flags().BoolVar(&ixOpts.json, "json", false, "Emit progress as JSON lines")
	ixRunCmd.Flags().BoolVar(&ixOpts.watch, "watch", false, "Re-run when the rule table changes")
	ixRunCmd.Flags().BoolVar(&ixOpts.dryRun, "dry-run", false, "Coerce without storing")

	IxCmd.AddCommand(ixRunCmd)
}

// runIx runs one ingestion and, unless dry-run, stores the entities.
func runIx(ctx context.Context, cfg *am.Config, opts ixOptions, emitter ix.ProgressEmitter) (*ix.Result, error) {
	rules, err := entity.LoadRules(opts.rulesPath)
	if err != nil {
		return nil, errors.WithHint(err, "point ingest.rules_path or --rules at a [[rule]] table")
	}

	sources, titles, err := buildSources(cfg, opts)
	if err != nil {
		return nil, err
	}
	if len(opts.entities) > 0 {
		titles = opts.entities
	}
	if len(titles) == 0 {
		return nil, errors.WithHint(errors.New("no entities to ingest"), "pass --entity or a --file that names entities")
	}

	p := &ix.Pipeline{
		Rules:   rules,
		Engine:  coerce.New(coerce.WithLogger(logger.ComponentLogger("coerce"))),
		Sources: sources,
		Workers: cfg.Ingest.Workers,
		Emitter: emitter,
		Logger:  logger.ComponentLogger("ix"),
	}
	result, err := p.Run(ctx, titles)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		emitter.EmitInfo(fmt.Sprintf("%s %s/%s: %s", w.Code, w.Entity, w.Field, w.Message))
	}
	if opts.dryRun {
		return result, nil
	}

	conn, st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stored := 0
	for _, e := range result.Entities {
		n, err := st.SaveEntity(ctx, e)
		if err != nil {
			emitter.EmitError("store", err)
			return nil, errors.Wrapf(err, "store %s", e.Title)
		}
		stored += n
	}
	emitter.EmitInfo(fmt.Sprintf("stored %d new observations in %s", stored, cfg.Database.Path))
	return result, nil
}

// buildSources returns the sources in flag order: files, then APIs. The
// titles are those named by the files.
func buildSources(cfg *am.Config, opts ixOptions) ([]ix.Source, []string, error) {
	var (
		sources []ix.Source
		titles  []string
		seen    = map[string]bool{}
	)
	for _, path := range opts.files {
		src, err := filesource.Load(path)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
		for _, title := range src.Entities() {
			if key := entity.Key(title); !seen[key] {
				seen[key] = true
				titles = append(titles, title)
			}
		}
	}

	for _, name := range opts.apis {
		sc, ok := cfg.Sources[strings.ToLower(name)]
		if !ok {
			return nil, nil, errors.WithHint(
				errors.NewNotFoundError("json source %q", name),
				fmt.Sprintf("configured sources: %s", strings.Join(cfg.SourceNames(), ", ")))
		}
		src, err := jsonapi.New(jsonSourceConfig(cfg, name, sc))
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, nil, errors.WithHint(errors.New("no sources"), "pass --file or --api")
	}
	return sources, titles, nil
}

func jsonSourceConfig(cfg *am.Config, name string, sc am.SourceConfig) jsonapi.Config {
	return jsonapi.Config{
		Name:            name,
		BaseURL:         sc.BaseURL,
		PathTemplate:    sc.PathTemplate,
		Query:           sc.Query,
		APIKey:          sc.APIKey,
		APIKeyParam:     sc.APIKeyParam,
		Records:         sc.Records,
		Fields:          sc.Fields,
		TimeKeys:        sc.TimeKeys,
		RateLimitPerSec: cfg.Ingest.RateLimitPerSec,
		Burst:           cfg.Ingest.Burst,
		Timeout:         cfg.Timeout(),
		UserAgent:       cfg.Ingest.UserAgent,
	}
}

// watchRules re-runs the ingestion each time the rule table changes, until
// ctx ends.
func watchRules(ctx context.Context, cfg *am.Config, opts ixOptions, emitter ix.ProgressEmitter) error {
	fw, err := am.NewFileWatcher(opts.rulesPath, am.DefaultDebounce)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.OnChange(func(path string) error {
		emitter.EmitStage("reload", path)
		_, err := runIx(ctx, cfg, opts, emitter)
		if err != nil {
			emitter.EmitError("reload", err)
		}
		return err
	})
	fw.Start()
	emitter.EmitInfo(fmt.Sprintf("watching %s (Ctrl+C to stop)", opts.rulesPath))

	<-ctx.Done()
	return nil
}
