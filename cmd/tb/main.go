package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"testbuilder/internal/app"
	"testbuilder/internal/cleaner"
	"testbuilder/internal/config"
	"testbuilder/internal/domain"
	"testbuilder/internal/manifest"
	"testbuilder/internal/server"
	"testbuilder/internal/syncer"
	"testbuilder/internal/trailgen"
)

// The target tree keeps generated tests under this path, and the manifest
// records sources relative to the tree root.
const validationPrefix = "testsuites/validation"

// baselineSource is the only manifest entry left after `tb zero`.
const baselineSource = validationPrefix + "/ts-model-0.c"

var rootCmd = &cobra.Command{
	Use:   "tb",
	Short: "Testbuilder CLI",
	Long: `Testbuilder turns model-checker counterexamples into regression tests.
For each formal model it runs the checker to enumerate counterexample
trails, converts every trail into compilable C test sources, deploys them
into the validation test tree and keeps the build manifest in sync.

Typical cycle: tb generate <model> && tb copy <model>, then tb compile
and tb run against the target tree. tb clean <model> removes generated
artifacts from the working directory; tb zero resets the manifest to the
baseline test suite.`,
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
	viper.SetEnvPrefix("TESTBUILDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workdir", "w", ".", "working directory holding model inputs and generated files")
	rootCmd.PersistentFlags().String("config", "", "settings file (default <workdir>/"+config.DefaultName+")")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workdir", rootCmd.PersistentFlags().Lookup("workdir"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(zeroCmd())
	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path(viper.GetString("workdir"))
}

// withApp loads settings and the run log, runs fn, and records the
// outcome in the run log. Recording is best effort.
func withApp(ctx context.Context, verb, model string, fn func(context.Context, *app.Context) error) error {
	a, err := app.Load(viper.GetString("workdir"), configPath())
	if err != nil {
		return err
	}
	defer a.Close()
	err = fn(ctx, a)
	status := domain.RunOK
	detail := ""
	if err != nil {
		status = domain.RunFailed
		detail = err.Error()
	}
	if _, recErr := a.Events.Record(ctx, verb, model, status, detail); recErr != nil {
		fmt.Println("warning: run log not updated:", recErr)
	}
	return err
}

func generateCmd() *cobra.Command {
	var spin string
	cmd := &cobra.Command{
		Use:   "generate <model>",
		Short: "Generate spin and test files for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			return withApp(cmd.Context(), "generate", model, func(ctx context.Context, a *app.Context) error {
				fmt.Println("Generating spin and test files for", model)
				eng := trailgen.New(a.Workdir, a.Config.Spin2Test, a.Runner)
				eng.Spin = spin
				res, err := eng.Generate(ctx, model)
				if err != nil {
					return err
				}
				switch res.Trails {
				case 0:
					fmt.Println("No trails found; model has no counterexamples")
				case 1:
					fmt.Println("Generated 1 trail")
				default:
					fmt.Printf("Generated %d trails\n", res.Trails)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&spin, "spin", trailgen.DefaultSpin, "model checker command")
	return cmd
}

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <model>",
		Short: "Copy test files into the target tree and update the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			return withApp(cmd.Context(), "copy", model, func(ctx context.Context, a *app.Context) error {
				s := syncer.Syncer{
					Dir:            a.Workdir,
					TargetDir:      a.Config.TestCode,
					ManifestPath:   a.Config.TestYAML,
					ManifestPrefix: validationPrefix,
				}
				fmt.Println("Removing old files for model", model)
				res, err := s.Sync(model)
				if err != nil {
					return err
				}
				fmt.Printf("Copied %d files for model %s\n", len(res.Copied), model)
				fmt.Println("Updating", a.Config.TestYAML, "for model", model)
				return nil
			})
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <model>",
		Short: "Remove spin and test files for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			return withApp(cmd.Context(), "clean", model, func(ctx context.Context, a *app.Context) error {
				fmt.Println("Removing spin and test files for", model)
				removed, err := cleaner.Clean(a.Workdir, model)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d files\n", len(removed))
				return nil
			})
		},
	}
}

func zeroCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zero",
		Short: "Reset the manifest to the baseline test suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), "zero", "", func(ctx context.Context, a *app.Context) error {
				fmt.Println("Zeroing", a.Config.TestYAML)
				m, err := manifest.Load(a.Config.TestYAML)
				if err != nil {
					return err
				}
				m.ResetSources(baselineSource)
				return m.Save(a.Config.TestYAML)
			})
		},
	}
}

func compileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile the target tree's tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), "compile", "", func(ctx context.Context, a *app.Context) error {
				if err := a.Runner.Run(ctx, a.Config.RTEMS, nil, "./waf", "configure"); err != nil {
					return err
				}
				return a.Runner.Run(ctx, a.Config.RTEMS, nil, "./waf")
			})
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the compiled tests in the simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), "run", "", func(ctx context.Context, a *app.Context) error {
				sim := strings.Fields(a.Config.Simulator)
				if len(sim) == 0 {
					return fmt.Errorf("simulator command is empty")
				}
				simArgs := append(sim[1:], "-leon3", "-r", "s", "-m", "2", a.Config.TestExe)
				fmt.Println("Doing", strings.Join(append(sim, "-leon3", "-r", "s", "-m", "2", a.Config.TestExe), " "))
				return a.Runner.Run(ctx, a.Config.RSB, nil, sim[0], simArgs...)
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the manifest's tracked sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), "status", "", func(ctx context.Context, a *app.Context) error {
				m, err := manifest.Load(a.Config.TestYAML)
				if err != nil {
					return err
				}
				sources := m.Sources.Sorted()
				if viper.GetBool("json") {
					return printJSON(map[string]any{"manifest": a.Config.TestYAML, "source": sources})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Source"})
				for i, src := range sources {
					tw.AppendRow(table.Row{i + 1, src})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Run log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var verb, model string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load(viper.GetString("workdir"), configPath())
			if err != nil {
				return err
			}
			defer a.Close()
			runs, err := a.Repo.LatestRuns(cmd.Context(), n, verb, model)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(runs)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"TS", "Verb", "Model", "Status", "Detail"})
			for _, r := range runs {
				tw.AppendRow(table.Row{r.TS, r.Verb, r.Model, r.Status, r.Detail})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of runs")
	cmd.Flags().StringVar(&verb, "verb", "", "verb filter")
	cmd.Flags().StringVar(&model, "model", "", "model filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load(viper.GetString("workdir"), configPath())
			if err != nil {
				return err
			}
			defer a.Close()
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("TESTBUILDER_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("TESTBUILDER_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Workdir:      a.Workdir,
				ManifestPath: a.Config.TestYAML,
				Repo:         a.Repo,
				BasePath:     basePath,
				Auth:         authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Testbuilder API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
