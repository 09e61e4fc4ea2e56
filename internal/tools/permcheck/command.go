package permcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/escuelalink/parent-gateway/internal/permission"
	"github.com/escuelalink/parent-gateway/internal/tools/common"
	"github.com/escuelalink/parent-gateway/internal/tools/ui"
)

type options struct {
	grantsFile string
	ci         bool
}

// NewCommand builds the permcheck subcommand. Given a grants dump it
// answers collection:action questions with the same merge rules the
// gateway applies at request time.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "permcheck collection:action [collection:action...]",
		Short: "Evaluate permission checks against a grants file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "permcheck", func(ctx context.Context) ([]string, error) {
				snap, err := loadSnapshot(ctx, opts.grantsFile)
				if err != nil {
					return nil, err
				}
				return evaluate(snap, args)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "permcheck", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.grantsFile, "grants", "grants.json", "JSON file with the raw grant list")
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		return fn(context.Background())
	}
	return ui.Run(title, fn)
}

func loadSnapshot(ctx context.Context, path string) (*permission.Snapshot, error) {
	cache := permission.NewCache(permission.LoaderFunc(func(context.Context) ([]permission.Grant, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read grants file: %w", err)
		}
		var grants []permission.Grant
		if err := json.Unmarshal(raw, &grants); err != nil {
			return nil, fmt.Errorf("parse grants file: %w", err)
		}
		return grants, nil
	}))
	cache.Init(ctx)
	// Init swallows load failures into a deny-all snapshot; for a CLI
	// check that distinction matters, so surface the retained error.
	if err := cache.LoadErr(); err != nil {
		return nil, err
	}
	return cache.Snapshot(), nil
}

func evaluate(snap *permission.Snapshot, checks []string) ([]string, error) {
	details := make([]string, 0, len(checks))
	denied := 0
	for _, check := range checks {
		collection, action, field, err := parseCheck(check)
		if err != nil {
			return nil, err
		}
		allowed := snap.Can(collection, action)
		if allowed && field != "" {
			allowed = snap.CanField(collection, field)
		}
		verdict := "ALLOW"
		if !allowed {
			verdict = "DENY "
			denied++
		}
		details = append(details, fmt.Sprintf("%s %s", verdict, check))
	}
	details = append(details, fmt.Sprintf("checked=%d denied=%d", len(checks), denied))
	if denied > 0 {
		return details, fmt.Errorf("%d of %d checks denied", denied, len(checks))
	}
	return details, nil
}

// parseCheck accepts collection:action or collection:action:field.
func parseCheck(v string) (collection string, action permission.Action, field string, err error) {
	parts := strings.Split(v, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid check %q: want collection:action[:field]", v)
	}
	collection = parts[0]
	action = permission.Action(parts[1])
	if len(parts) == 3 {
		field = parts[2]
	}
	return collection, action, field, nil
}
