package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/tier"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers [category|tier]",
	Short: "Show notification tiers and the category mapping",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTiers,
}

func runTiers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg := tier.NewRegistry(cfg.Tiers)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		p := reg.Resolve(args[0])
		fmt.Fprintf(out, "%s (%s)\n", p.ID, p.Name)
		fmt.Fprintf(out, "  sound:       %s\n", p.Sound)
		fmt.Fprintf(out, "  priority:    %s\n", p.Priority)
		fmt.Fprintf(out, "  vibration:   %v\n", p.Vibration)
		fmt.Fprintf(out, "  full screen: %t\n", p.FullScreenIntent)
		fmt.Fprintf(out, "  android:     %s\n", p.AndroidChannelID)
		fmt.Fprintf(out, "  ios:         %s\n", p.IOSInterruptionLevel)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tNAME\tSOUND\tPRIORITY")
	for _, p := range tier.Profiles() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Sound, p.Priority)
	}
	tw.Flush()

	fmt.Fprintln(out)
	mapping := reg.Mapping()
	cats := make([]string, 0, len(mapping))
	for c := range mapping {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(out, "%-16s %s\n", c, mapping[c])
	}
	return nil
}
