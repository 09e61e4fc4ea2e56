package linkcheck

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/escuelalink/parent-gateway/internal/deeplink"
	"github.com/escuelalink/parent-gateway/internal/tools/common"
	"github.com/escuelalink/parent-gateway/internal/tools/ui"
)

type options struct {
	file string
	ci   bool
}

// NewCommand builds the linkcheck subcommand. It runs candidate deep
// links through the same validation pipeline the gateway uses, so a
// notification campaign can be vetted before it ships.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "linkcheck [links...]",
		Short: "Validate deep links against the route allow-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "linkcheck", func(ctx context.Context) ([]string, error) {
				links, err := collectLinks(opts.file, args)
				if err != nil {
					return nil, err
				}
				return check(links)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "linkcheck", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "file with one link per line")
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		return fn(context.Background())
	}
	return ui.Run(title, fn)
}

func collectLinks(file string, args []string) ([]string, error) {
	links := append([]string{}, args...)
	if file == "" {
		if len(links) == 0 {
			return nil, fmt.Errorf("no links given: pass links as arguments or use --file")
		}
		return links, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open link file: %w", err)
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read link file: %w", err)
	}
	return links, nil
}

func check(links []string) ([]string, error) {
	resolver := deeplink.NewResolver(nil)
	details := make([]string, 0, len(links))
	rejected := 0
	for _, link := range links {
		target, err := resolver.Resolve(link)
		if err != nil {
			rejected++
			details = append(details, fmt.Sprintf("REJECT %s", link))
			continue
		}
		details = append(details, fmt.Sprintf("OK     %s -> route=%s id=%s", link, target.Route, target.ID))
	}
	details = append(details, fmt.Sprintf("checked=%d rejected=%d", len(links), rejected))
	if rejected > 0 {
		return details, fmt.Errorf("%d of %d links rejected", rejected, len(links))
	}
	return details, nil
}
