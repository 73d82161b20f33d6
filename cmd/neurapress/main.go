package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PNikhileswar/neurapress/internal/conf"
	"github.com/PNikhileswar/neurapress/internal/generator"
	"github.com/PNikhileswar/neurapress/internal/server"
	// import anonymously to register tasks to the list
	_ "github.com/PNikhileswar/neurapress/internal/tasks/content"
	_ "github.com/PNikhileswar/neurapress/internal/tasks/network"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "neurapress",
	Short:         "NeuraPress - trending topic articles with cached stats",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the job scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cfg, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		if a.subscriber != nil {
			go func() {
				if err := a.subscriber.Run(ctx); err != nil {
					logger.Error("❌ [Invalidation] subscriber stopped", zap.Error(err))
				}
			}()
		}

		deps := server.Deps{
			Articles:   a.articles,
			Matcher:    a.matcher,
			Stats:      a.stats,
			Cache:      a.cache,
			Notifier:   a.notifier,
			Scheduler:  a.newScheduler(),
			CutoffDays: cfg.Matcher.CutoffDays,
		}
		if a.generator != nil {
			deps.Generator = a.generator
		}
		return server.NewServer(cfg.Server, deps).Run(ctx, cfg.Server.Port)
	},
}

var (
	genCategory string
	genKeywords []string
	genCutoff   int
	genForce    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <title>",
	Short: "Generate one article for a topic unless a similar recent article exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, _, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())
		if a.generator == nil {
			return errors.New("article generation is not configured (llm.api_key)")
		}

		req := generator.Request{
			Candidate: topic.Candidate{Title: args[0], Category: genCategory, Keywords: genKeywords},
			Force:     genForce,
		}
		if cmd.Flags().Changed("cutoff") {
			req.CutoffDays = &genCutoff
		}
		out, err := a.generator.Generate(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var checkCutoff int

var checkCmd = &cobra.Command{
	Use:   "check <title>",
	Short: "Report whether a similar article was published within the cutoff window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cfg, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		cutoff := cfg.Matcher.CutoffDays
		if cmd.Flags().Changed("cutoff") {
			cutoff = checkCutoff
		}
		res, err := a.matcher.Check(ctx, args[0], cutoff)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print article statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, _, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())
		return printJSON(a.stats.Get(ctx))
	},
}

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run a registered job once and wait for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, _, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())
		return a.newScheduler().RunNow(args[0])
	},
}

func boot(ctx context.Context) (*app, *conf.Config, error) {
	cfg, err := conf.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	a, err := newApp(bootCtx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before the config")

	generateCmd.Flags().StringVar(&genCategory, "category", "", "article category (default technology)")
	generateCmd.Flags().StringSliceVar(&genKeywords, "keywords", nil, "topic keywords")
	generateCmd.Flags().IntVar(&genCutoff, "cutoff", 0, "similarity window in days")
	generateCmd.Flags().BoolVar(&genForce, "force", false, "skip the similarity check")

	checkCmd.Flags().IntVar(&checkCutoff, "cutoff", 0, "similarity window in days")

	rootCmd.AddCommand(serveCmd, generateCmd, checkCmd, statsCmd, runCmd)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		logger.Error("❌ command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
