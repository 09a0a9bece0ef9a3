package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/odyssey-erp/odyssey-hrm/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-hrm/internal/access"
)

const usage = `usage:
  odyssey                                   run the HTTP server
  odyssey policy check --role R [flags]     evaluate the access policy offline
  odyssey policy roles [--json]             print the role hierarchy
  odyssey jobs trigger <task> [args...]     enqueue a job (session:sweep, session:refresh)
  odyssey jobs stats                        print default queue statistics`

func runCommand(args []string) int {
	return dispatch(args, os.Stdout, os.Stderr)
}

func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		_, _ = fmt.Fprintln(stderr, usage)
		return cli.ExitUsage
	}
	switch args[0] {
	case "policy":
		return runPolicy(args[1], args[2:], stdout, stderr)
	case "jobs":
		return runJobs(args[1], args[2:], stdout, stderr)
	default:
		_, _ = fmt.Fprintln(stderr, usage)
		return cli.ExitUsage
	}
}

func runPolicy(sub string, args []string, stdout, stderr io.Writer) int {
	policy := cli.NewPolicyCLI(access.NewEngine(access.DefaultCatalog()))
	switch sub {
	case "check":
		opts, err := cli.ParsePolicyCheckArgs(args, stderr)
		if err != nil {
			return cli.ExitUsage
		}
		opts.Stdout, opts.Stderr = stdout, stderr
		return policy.CheckCommand(opts)
	case "roles":
		fs := flag.NewFlagSet("policy roles", flag.ContinueOnError)
		fs.SetOutput(stderr)
		jsonOutput := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args); err != nil {
			return cli.ExitUsage
		}
		return policy.RolesCommand(stdout, *jsonOutput)
	default:
		_, _ = fmt.Fprintln(stderr, usage)
		return cli.ExitUsage
	}
}

func runJobs(sub string, args []string, stdout, stderr io.Writer) int {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	jobsCLI, err := cli.NewJobsCLI(redisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs: %v\n", err)
		return cli.ExitUsage
	}
	defer func() { _ = jobsCLI.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch sub {
	case "trigger":
		if len(args) == 0 {
			_, _ = fmt.Fprintln(stderr, "jobs trigger: task name required")
			return cli.ExitUsage
		}
		info, err := jobsCLI.Trigger(ctx, args[0], args[1:]...)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return cli.ExitUsage
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return cli.ExitOK
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return cli.ExitUsage
		}
		_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return cli.ExitOK
	default:
		_, _ = fmt.Fprintln(stderr, usage)
		return cli.ExitUsage
	}
}
