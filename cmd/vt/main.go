package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vontta/internal/app"
	"vontta/internal/config"
	"vontta/internal/engine"
	"vontta/internal/logging"
	"vontta/internal/realtime"
	"vontta/internal/scheduler"
	"vontta/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "vt",
	Short: "Vontta CLI",
	Long: `Vontta tracks the team's weekly work.
- Tasks: planned and delivered activities with hours (HH:mm), one per collaborator and date.
- Board: kanban cards with members and subtasks (TODO, DOING, DONE, CANCELED).
- Week close: snapshots the live tasks and cards into history, then clears them.
- History: closed weeks with reports and xlsx export.
- Activity: every change is logged, view it with 'vt log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("VONTTA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "profile id acting on the command")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	for _, name := range []string{"workspace", "json", "actor-id", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(sectorCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(apiKeyCmd())
}

func newLogger() *slog.Logger {
	return logging.New(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format"))
}

func initCmd() *cobra.Command {
	var adminID, adminName, adminEmail string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create vontta.yml, the database and the first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			written, err := app.WriteDefaultConfig(workspace, force)
			if err != nil {
				return err
			}
			rt, err := app.Open(cmd.Context(), workspace, newLogger())
			if err != nil {
				return err
			}
			defer rt.Close()
			res, err := app.Bootstrap(cmd.Context(), rt.Engine, engine.ProfileInput{ID: adminID, Name: adminName, Email: adminEmail})
			if err != nil {
				return err
			}
			res.ConfigWritten = written
			if viper.GetBool("json") {
				return printJSON(res)
			}
			if written {
				fmt.Printf("Wrote %s\n", config.Path(workspace))
			}
			if res.AdminCreated {
				fmt.Printf("Created admin %s (%s)\n", res.Admin.Name, res.Admin.ID)
			} else {
				fmt.Println("Workspace already has profiles; no admin created")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&adminID, "admin-id", "", "admin profile id (generated if empty)")
	cmd.Flags().StringVar(&adminName, "admin-name", "Admin", "admin display name")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "admin email")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing vontta.yml")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, closeAs string
	var legacyHeader, devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the REST API, the realtime websocket, webhooks and the scheduled week close. vontta.yml is reloaded when it changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			rt, err := app.Open(ctx, viper.GetString("workspace"), logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.Engine.Chat.EnsureDefaultChannel(ctx); err != nil {
				return err
			}

			authCfg := server.AuthConfig{
				JWTSecret:             viper.GetString("jwt-secret"),
				AllowLegacyUserHeader: legacyHeader,
				DevLogin:              devLogin,
			}
			if authCfg.JWTSecret == "" && !legacyHeader {
				return fmt.Errorf("VONTTA_JWT_SECRET is required unless --allow-legacy-header is set")
			}
			hub := realtime.NewHub(logger.With("component", "realtime"))
			defer hub.Attach(rt.Engine.Cache)()
			handler, err := server.New(server.Config{Engine: rt.Engine, BasePath: basePath, Auth: authCfg, Hub: hub, Logger: logger})
			if err != nil {
				return err
			}

			go func() {
				if err := rt.Config.Watch(ctx); err != nil {
					logger.Warn("config watch disabled", "error", err)
				}
			}()
			go server.NewWebhookDispatcher(rt.Engine, logger).Run(ctx)

			if closeAs != "" {
				sched := scheduler.New(rt.Engine.Location(), rt.Engine.CloseWeek, closeAs, logger.With("component", "scheduler"))
				if err := sched.Reschedule(rt.Config.Get().Week.CloseSchedule); err != nil {
					return err
				}
				rt.Config.OnChange(func(c *config.Config) {
					if err := sched.Reschedule(c.Week.CloseSchedule); err != nil {
						logger.Error("reschedule week close", "error", err)
					}
				})
				sched.Start()
				defer sched.Stop()
				if next := sched.Next(); !next.IsZero() {
					logger.Info("week close scheduled", "next", next.Format(time.RFC3339), "actor", closeAs)
				}
			}

			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			fmt.Printf("Serving Vontta API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().StringVar(&closeAs, "close-as", "", "admin profile id used by the scheduled week close (disabled when empty)")
	cmd.Flags().BoolVar(&legacyHeader, "allow-legacy-header", false, "trust X-User-Id without credentials")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable POST /auth/dev/login")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect vontta.yml",
		Long:  "Settings for time zone, workload limits, the week close schedule, the assistant and webhooks.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			var out []byte
			switch format {
			case "toml":
				out, err = cfg.TOML()
			case "yaml", "":
				out, err = cfg.YAML()
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml, toml)")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate vontta.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	rt, err := app.Open(ctx, viper.GetString("workspace"), newLogger())
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt.Engine)
}

func actorID() (string, error) {
	id := strings.TrimSpace(viper.GetString("actor-id"))
	if id == "" {
		return "", fmt.Errorf("--actor-id (or VONTTA_ACTOR_ID) is required")
	}
	return id, nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows renders a table, or v as JSON with --json.
func printRows(v any, header table.Row, rows []table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

func optionalString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
