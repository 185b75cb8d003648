package rules

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/convex-doctor/internal/config"
	"github.com/scan-io-git/convex-doctor/internal/rules"
)

// RunOptionsRules holds the arguments for the rules command.
type RunOptionsRules struct {
	Config string
}

var (
	rulesOptions      RunOptionsRules
	exampleRulesUsage = `  # Listing every rule with its category and severity class
  convex-doctor rules

  # Showing which rules a project configuration disables
  convex-doctor rules --config /path/to/my_project/convex-doctor.yml /path/to/my_project`
)

// RulesCmd represents the rules command.
var RulesCmd = &cobra.Command{
	Use:                   "rules [--config/-c PATH] [PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Args:                  cobra.MaximumNArgs(1),
	Example:               exampleRulesUsage,
	Short:                 "Prints the rule coverage matrix",
	RunE:                  runRulesCommand,
}

func runRulesCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 && args[0] != "" {
		root = args[0]
	}

	registry := rules.NewRegistry()
	cfg, err := config.Resolve(rulesOptions.Config, root, func(id string) bool {
		_, ok := registry.Lookup(id)
		return ok
	})
	if err != nil {
		return err
	}
	return printCoverage(cmd.OutOrStdout(), registry, cfg.IsRuleEnabled)
}

// printCoverage writes one row per rule in registry order, then a per-category summary.
func printCoverage(out io.Writer, registry *rules.Registry, enabled func(id string) bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tCATEGORY\tSEVERITY\tSCOPE\tENABLED")

	type tally struct{ total, enabled int }
	var order []rules.Category
	perCategory := map[rules.Category]*tally{}
	for _, r := range registry.All() {
		scope := "file"
		if _, ok := r.(rules.ProjectRule); ok {
			scope = "project"
		}
		on := enabled(r.ID())
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID(), r.Category(), r.Severity(), scope, yesNo(on))

		t, ok := perCategory[r.Category()]
		if !ok {
			t = &tally{}
			perCategory[r.Category()] = t
			order = append(order, r.Category())
		}
		t.total++
		if on {
			t.enabled++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	var total, on int
	for _, c := range order {
		t := perCategory[c]
		fmt.Fprintf(out, "%-14s %d/%d enabled\n", c.String(), t.enabled, t.total)
		total += t.total
		on += t.enabled
	}
	_, err := fmt.Fprintf(out, "%-14s %d/%d enabled\n", "total", on, total)
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	RulesCmd.Flags().StringVarP(&rulesOptions.Config, "config", "c", "", "Path to a convex-doctor configuration file. Defaults to convex-doctor.yml in the project root.")
	RulesCmd.Flags().BoolP("help", "h", false, "Show help for the rules command.")
}
