package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lewis121025/Generate-Agent/config"
	"github.com/Lewis121025/Generate-Agent/server"
)

var rootCmd = &cobra.Command{
	Use:   "generate-agent",
	Short: "Generate-Agent engine CLI",
	Long: `Generate-Agent runs two orchestration modes over a shared tool runtime:
creative projects walk a brief through script, storyboard, render and preview
with budget enforcement and quality gates; general sessions run a bounded
think/act/observe loop toward a goal. Serve the HTTP API or inspect state from
the command line.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("GENERATE_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML settings file")
	rootCmd.PersistentFlags().String("tenant", "local", "tenant identifier")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(sessionsCmd())
}

func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetString("config"))
}

func withApp(fn func(ctx context.Context, a *app) error) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := newApp(settings)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				handler, err := server.New(server.Config{
					Creative: a.creative,
					General:  a.general,
					BasePath: a.settings.Server.BasePath,
					Auth: server.AuthConfig{
						JWTSecret:         a.settings.Server.JWTSecret,
						AllowTenantHeader: a.settings.Environment != "production",
					},
					ExposeErrorDetails: a.settings.Environment != "production",
				})
				if err != nil {
					return err
				}
				a.logger.Info("serving api", "addr", a.settings.Server.Addr, "base_path", a.settings.Server.BasePath)
				return http.ListenAndServe(a.settings.Server.Addr, handler)
			})
		},
	}
}

func projectsCmd() *cobra.Command {
	prj := &cobra.Command{Use: "projects", Short: "Inspect creative projects"}
	prj.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tenant's projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				items, err := a.creative.ListForTenant(ctx, viper.GetString("tenant"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "State", "Duration", "Budget", "Shots"})
				for _, p := range items {
					tw.AppendRow(table.Row{
						p.ID, p.Title, p.State,
						fmt.Sprintf("%ds", p.DurationSeconds),
						fmt.Sprintf("%.2f", p.BudgetUSD),
						len(p.Storyboard),
					})
				}
				tw.Render()
				return nil
			})
		},
	})
	return prj
}

func sessionsCmd() *cobra.Command {
	ses := &cobra.Command{Use: "sessions", Short: "Inspect reasoning sessions"}
	ses.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tenant's sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				items, err := a.general.ListForTenant(ctx, viper.GetString("tenant"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Goal", "State", "Iterations", "Answer"})
				for _, s := range items {
					tw.AppendRow(table.Row{
						s.ID, truncate(s.Goal, 40), s.State,
						fmt.Sprintf("%d/%d", s.Iterations, s.MaxIterations),
						truncate(s.Answer, 40),
					})
				}
				tw.Render()
				return nil
			})
		},
	})
	return ses
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
