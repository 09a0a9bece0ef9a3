package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
)

// Exit codes returned by the policy commands.
const (
	ExitOK     = 0
	ExitUsage  = 1
	ExitDenied = 10
)

// PolicyCLI evaluates the access policy offline.
type PolicyCLI struct {
	engine *access.Engine
}

// NewPolicyCLI constructs a helper bound to engine.
func NewPolicyCLI(engine *access.Engine) *PolicyCLI {
	return &PolicyCLI{engine: engine}
}

// PolicyCheckOptions defines available flags for the policy check command.
type PolicyCheckOptions struct {
	Role        string
	Department  string
	Permissions []string
	Features    []string
	Level       int
	Manage      []string
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// PolicyCheckSummary describes the JSON response for policy check.
type PolicyCheckSummary struct {
	OK          bool                `json:"ok"`
	Role        access.Role         `json:"role"`
	Level       int                 `json:"level"`
	Department  access.Department   `json:"department"`
	Permissions []access.Permission `json:"permissions"`
	Checks      []PolicyCheckResult `json:"checks"`
}

// PolicyCheckResult is the outcome of one requested check.
type PolicyCheckResult struct {
	Check   string `json:"check"`
	Target  string `json:"target"`
	Allowed bool   `json:"allowed"`
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// ParsePolicyCheckArgs parses policy check flags.
func ParsePolicyCheckArgs(args []string, stderr io.Writer) (PolicyCheckOptions, error) {
	var opts PolicyCheckOptions
	var perms, features, manage stringList
	fs := flag.NewFlagSet("policy check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Role, "role", "", "role to evaluate (required)")
	fs.StringVar(&opts.Department, "department", "", "department of the evaluated identity")
	fs.Var(&perms, "permission", "permission to check; repeatable or comma separated")
	fs.Var(&features, "feature", "feature to check; repeatable or comma separated")
	fs.Var(&manage, "manage", "target role the identity must be able to manage; repeatable")
	fs.IntVar(&opts.Level, "level", 0, "required role level (1 is the most senior)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return PolicyCheckOptions{}, err
	}
	if fs.NArg() > 0 {
		return PolicyCheckOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	opts.Permissions, opts.Features, opts.Manage = perms, features, manage
	return opts, nil
}

// CheckCommand executes the policy check workflow and prints the outcome.
func (c *PolicyCLI) CheckCommand(opts PolicyCheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	summary, err := c.evaluate(opts)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "policy check: %v\n", err)
		return ExitUsage
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "policy check: encode json: %v\n", err)
			return ExitUsage
		}
	} else {
		renderCheckHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitDenied
	}
	return ExitOK
}

func (c *PolicyCLI) evaluate(opts PolicyCheckOptions) (PolicyCheckSummary, error) {
	if strings.TrimSpace(opts.Role) == "" {
		return PolicyCheckSummary{}, errors.New("--role is required")
	}
	role, err := c.engine.ParseRole(opts.Role)
	if err != nil {
		return PolicyCheckSummary{}, err
	}
	dept, err := c.engine.ParseDepartment(opts.Department)
	if err != nil {
		return PolicyCheckSummary{}, err
	}
	perms, err := c.engine.ParsePermissions(opts.Permissions)
	if err != nil {
		return PolicyCheckSummary{}, err
	}
	if opts.Level < 0 {
		return PolicyCheckSummary{}, fmt.Errorf("--level must be positive, got %d", opts.Level)
	}

	id := c.engine.Identify("cli", role, dept)
	summary := PolicyCheckSummary{
		OK:          true,
		Role:        role,
		Level:       c.engine.RoleLevel(role),
		Department:  dept,
		Permissions: id.Permissions.Sorted(),
		Checks:      []PolicyCheckResult{},
	}
	add := func(check, target string, allowed bool) {
		summary.Checks = append(summary.Checks, PolicyCheckResult{Check: check, Target: target, Allowed: allowed})
		summary.OK = summary.OK && allowed
	}

	for _, p := range perms {
		add("permission", string(p), c.engine.HasPermission(id, p))
	}
	for _, raw := range opts.Features {
		feature, err := c.engine.ParseFeature(raw)
		if err != nil {
			return PolicyCheckSummary{}, err
		}
		add("feature", string(feature), c.engine.CanAccessFeature(id, feature))
	}
	if opts.Level > 0 {
		add("level", fmt.Sprint(opts.Level), c.engine.HasRoleLevel(id, opts.Level))
	}
	for _, raw := range opts.Manage {
		target, err := c.engine.ParseRole(raw)
		if err != nil {
			return PolicyCheckSummary{}, err
		}
		add("manage", string(target), c.engine.CanManageUser(id, target))
	}
	return summary, nil
}

func renderCheckHuman(w io.Writer, summary PolicyCheckSummary) {
	dept := string(summary.Department)
	if dept == "" {
		dept = "-"
	}
	_, _ = fmt.Fprintf(w, "role: %s (level %d)  department: %s\n", summary.Role, summary.Level, dept)
	_, _ = fmt.Fprintf(w, "permissions: %d\n", len(summary.Permissions))
	if len(summary.Checks) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHECK\tTARGET\tRESULT")
	for _, check := range summary.Checks {
		result := "deny"
		if check.Allowed {
			result = "allow"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", check.Check, check.Target, result)
	}
	_ = tw.Flush()
	if summary.OK {
		_, _ = fmt.Fprintln(w, "result: all checks passed")
	} else {
		_, _ = fmt.Fprintln(w, "result: one or more checks denied")
	}
}

// RolesCommand prints the role hierarchy.
func (c *PolicyCLI) RolesCommand(stdout io.Writer, jsonOutput bool) int {
	if stdout == nil {
		stdout = os.Stdout
	}
	type roleRow struct {
		Role        access.Role `json:"role"`
		Label       string      `json:"label"`
		Level       int         `json:"level"`
		Permissions int         `json:"permissions"`
	}
	rows := make([]roleRow, 0, len(c.engine.RolesByLevel()))
	for _, role := range c.engine.RolesByLevel() {
		rows = append(rows, roleRow{
			Role:        role,
			Label:       role.Label(),
			Level:       c.engine.RoleLevel(role),
			Permissions: len(c.engine.RolePermissions(role)),
		})
	}
	if jsonOutput {
		if err := json.NewEncoder(stdout).Encode(rows); err != nil {
			return ExitUsage
		}
		return ExitOK
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LEVEL\tROLE\tLABEL\tPERMISSIONS")
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", row.Level, row.Role, row.Label, row.Permissions)
	}
	_ = tw.Flush()
	return ExitOK
}
