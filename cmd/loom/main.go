package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jorge-barreto/loom/internal/audit"
	"github.com/jorge-barreto/loom/internal/brainstorm"
	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/decision"
	"github.com/jorge-barreto/loom/internal/decompose"
	"github.com/jorge-barreto/loom/internal/dispatch"
	"github.com/jorge-barreto/loom/internal/doctor"
	"github.com/jorge-barreto/loom/internal/docs"
	"github.com/jorge-barreto/loom/internal/eventlog"
	"github.com/jorge-barreto/loom/internal/runner"
	"github.com/jorge-barreto/loom/internal/scaffold"
	"github.com/jorge-barreto/loom/internal/state"
	"github.com/jorge-barreto/loom/internal/ux"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "loom",
		Usage:       "Task-graph planning and execution pipeline",
		Description: "Run 'loom docs' for documentation on config syntax, pipeline phases, mutations, and triggers.",
		Commands: []*cli.Command{
			initCmd(),
			planCmd(),
			runCmd(),
			statusCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

// project bundles what every command loads: config, dirs, environment.
type project struct {
	root         string
	artifactsDir string
	cfg          *config.Config
}

func loadProject() (*project, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(root, ".loom", "config.yaml"), root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &project{
		root:         root,
		artifactsDir: filepath.Join(root, ".loom", "artifacts"),
		cfg:          cfg,
	}, nil
}

func (p *project) environment(request string, auto bool) *dispatch.Environment {
	return &dispatch.Environment{
		ProjectRoot:  p.root,
		WorkDir:      p.root,
		ArtifactsDir: p.artifactsDir,
		Request:      request,
		AutoMode:     auto,
	}
}

func planCmd() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Audit the codebase and build the task graph for a request",
		ArgsUsage: "<request>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "findings", Usage: "Use a hand-written findings file instead of the audit agent"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := guardNestedAgent(); err != nil {
				return err
			}
			request := cmd.Args().First()
			if request == "" {
				return fmt.Errorf("request argument is required")
			}

			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := config.ValidateRequest(p.cfg.RequestPattern, request); err != nil {
				return err
			}

			st, err := state.Load(p.artifactsDir)
			if err != nil {
				return fmt.Errorf("loading checkpoint: %w", err)
			}
			if st.Tasks.Len() > 0 {
				return fmt.Errorf("a plan already exists for %q; delete .loom/artifacts/ to replan", st.Request)
			}

			st = state.New(request)
			st.Phase = st.Phase.Next() // intake done: the request is captured

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			var findings []decompose.Finding
			if path := cmd.String("findings"); path != "" {
				findings, err = decompose.LoadFindings(path)
				if err != nil {
					return err
				}
			} else {
				auditor := &audit.Runner{
					Env:     p.environment(request, false),
					Model:   p.cfg.Specialist.Model,
					Timeout: p.cfg.Specialist.Timeout,
				}
				findings, err = auditor.Run(ctx, request)
				if err != nil {
					return err
				}
			}
			st.Phase = st.Phase.Next() // audit done: findings exist

			if err := decompose.Build(st, findings); err != nil {
				return err
			}

			if err := state.EnsureDir(p.artifactsDir); err != nil {
				return err
			}
			if err := st.Save(p.artifactsDir); err != nil {
				return fmt.Errorf("saving checkpoint: %w", err)
			}

			fmt.Printf("\n%s✓ Planned %d task(s) for %q%s\n", ux.Green, st.Tasks.Len(), request, ux.Reset)
			(&runner.Runner{State: st}).DryRunPrint()
			if st.Blocked() {
				ux.Blocked(st.BlockedReason)
			}
			fmt.Printf("Next: %sloom run %q%s\n", ux.Cyan, request, ux.Reset)
			return nil
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Execute the planned task graph",
		ArgsUsage: "<request>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "auto", Usage: "No human review; policy decisions only"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the task plan without executing"},
			&cli.BoolFlag{Name: "unblock", Usage: "Clear a recorded pause reason and resume"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := guardNestedAgent(); err != nil {
				return err
			}
			request := cmd.Args().First()
			if request == "" {
				return fmt.Errorf("request argument is required")
			}

			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := config.ValidateRequest(p.cfg.RequestPattern, request); err != nil {
				return err
			}

			st, err := state.Load(p.artifactsDir)
			if err != nil {
				return fmt.Errorf("loading checkpoint: %w", err)
			}
			if st.Tasks.Len() == 0 {
				return fmt.Errorf("no plan found; run 'loom plan %q' first", request)
			}
			if st.Request != request {
				return fmt.Errorf("checkpoint is for request %q, not %q", st.Request, request)
			}

			auto := cmd.Bool("auto")
			env := p.environment(request, auto)

			r := &runner.Runner{
				Config: p.cfg,
				State:  st,
				Env:    env,
			}

			if cmd.Bool("dry-run") {
				r.DryRunPrint()
				return nil
			}

			if cmd.Bool("unblock") {
				st.Unblock()
			}

			events, err := eventlog.Open(p.artifactsDir)
			if err != nil {
				return fmt.Errorf("opening event log: %w", err)
			}
			defer events.Close()

			var decider decision.Decider
			var reviewer dispatch.Reviewer
			if auto {
				decider = &decision.Policy{Default: decision.Option(p.cfg.AutoDecision)}
				reviewer = dispatch.AutoReviewer{}
			} else {
				decider = &decision.Console{In: os.Stdin, Out: os.Stdout}
				reviewer = &dispatch.ConsoleReviewer{In: os.Stdin, Out: os.Stdout}
			}

			r.Specialist = &dispatch.AgentSpecialist{Env: env, Cfg: p.cfg.Specialist}
			r.Reviewer = reviewer
			r.Gates = &dispatch.ScriptGateRunner{Env: env}
			r.Integration = &dispatch.ScriptIntegrationRunner{Env: env, Cfg: p.cfg.Integration}
			r.Events = events
			r.Engine = &brainstorm.Engine{
				State:   st,
				Risk:    p.cfg.Risk,
				Decider: decider,
				Events:  events,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			return r.Run(ctx)
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pipeline status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			st, err := state.Load(p.artifactsDir)
			if err != nil {
				return fmt.Errorf("loading checkpoint: %w", err)
			}
			if st.Request == "" {
				fmt.Println("No plan yet. Run 'loom plan \"<request>\"' to create one.")
				return nil
			}
			ux.RenderStatus(st, p.artifactsDir)
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the environment and diagnose a paused or failed run",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			st, err := state.Load(p.artifactsDir)
			if err != nil {
				return fmt.Errorf("loading checkpoint: %w", err)
			}
			return doctor.Run(ctx, p.root, p.artifactsDir, p.cfg, st)
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new .loom/ directory with example config",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir)
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'loom docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

// guardNestedAgent refuses to dispatch agents from inside one.
func guardNestedAgent() error {
	if os.Getenv("CLAUDECODE") != "" {
		return fmt.Errorf("loom cannot run inside Claude Code (CLAUDECODE env var is set). Run from a regular terminal")
	}
	return nil
}

// findProjectRoot walks up from cwd looking for .loom/config.yaml.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ".loom", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .loom/config.yaml found (searched from cwd to root)")
		}
		dir = parent
	}
}
