package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bodega/internal"
	"bodega/internal/api"
	"bodega/internal/catalog"
	"bodega/internal/pipeline"
	"bodega/internal/search"
	"bodega/internal/util"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load every snapshot once and record the run",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		st := idx.Stats()
		fmt.Printf("load done towns=%d shops=%d items=%d added=%d removed=%d failed=%d\n",
			len(st.Towns), st.TotalShops, st.TotalItems, st.AddedItems, st.RemovedItems, st.FailedItems)
		return nil
	},
}

type queryFlags struct {
	view       search.View
	towns      []string
	prices     []string
	enchants   []int
	types      []string
	capacities []string
	armors     []string
	shields    []string
	wear       []string
	skills     []string
	props      []string
	rarities   []string
	gemProps   []int
	signs      bool
	sort       string
	dir        string
	limit      int
}

func (f *queryFlags) register(cmd *cobra.Command, view search.View, defaultSort string) {
	f.view = view
	cmd.Flags().StringSliceVar(&f.towns, "town", nil, "restrict to towns")
	cmd.Flags().StringArrayVar(&f.prices, "price", nil, "price band min-max (repeatable)")
	cmd.Flags().IntSliceVar(&f.enchants, "enchant", nil, "minimum enchant levels")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "weapon|armor|shield|container|jewelry|gemstone")
	cmd.Flags().StringSliceVar(&f.capacities, "capacity", nil, "container capacity levels")
	cmd.Flags().StringSliceVar(&f.armors, "armor", nil, "armor types")
	cmd.Flags().StringSliceVar(&f.shields, "shield", nil, "shield sizes")
	cmd.Flags().StringSliceVar(&f.wear, "wear", nil, "wear locations")
	cmd.Flags().StringSliceVar(&f.skills, "skill", nil, "weapon skills")
	cmd.Flags().StringSliceVar(&f.props, "prop", nil, "special properties that must all hold")
	cmd.Flags().StringSliceVar(&f.rarities, "rarity", nil, "gemstone property rarities")
	cmd.Flags().IntSliceVar(&f.gemProps, "gem-props", nil, "gemstone property counts")
	cmd.Flags().BoolVar(&f.signs, "signs", false, "also search shop preambles and signs")
	cmd.Flags().StringVar(&f.sort, "sort", defaultSort, "sort field")
	cmd.Flags().StringVar(&f.dir, "dir", "", "asc|desc (default depends on field)")
	cmd.Flags().IntVar(&f.limit, "limit", 50, "max rows to print, 0 for all")
}

func (f *queryFlags) criteria(query string) search.Criteria {
	return search.Criteria{
		Query:                  query,
		SearchShopSigns:        f.signs,
		Towns:                  f.towns,
		PriceRanges:            f.prices,
		EnchantLevels:          f.enchants,
		ItemTypes:              f.types,
		CapacityLevels:         f.capacities,
		ArmorTypes:             f.armors,
		ShieldTypes:            f.shields,
		WearLocations:          f.wear,
		Skills:                 f.skills,
		SpecialProperties:      f.props,
		GemstoneRarities:       f.rarities,
		GemstonePropertyCounts: f.gemProps,
		Now:                    time.Now(),
	}
}

func (f *queryFlags) sortSpec() search.SortSpec {
	field := search.ViewField(f.view, f.sort)
	return search.SortSpec{Field: field, Direction: search.ParseDirection(f.dir, field)}
}

func (f *queryFlags) run(items []*internal.NormalizedItem, crit search.Criteria, recency string) {
	matched := search.Filter(items, crit)
	search.Sort(matched, f.sortSpec())
	printItems(matched, f.limit, recency)
}

var (
	searchFlags  queryFlags
	addedFlags   queryFlags
	removedFlags queryFlags
	addedDays    int
	removedDays  int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the live catalog",
	Long: `Searches item names, locations, descriptions, tags and properties.

Query forms:
  sword                 every term must appear
  "ice blade" dagger    quoted phrases are kept together
  *rune*staff           glob with * wildcards
  5 to strength         enhancive bonus, also matches "5 strength"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		searchFlags.run(idx.Items, searchFlags.criteria(strings.Join(args, " ")), "")
		return nil
	},
}

var addedCmd = &cobra.Command{
	Use:   "added [query]",
	Short: "List recently added items",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		crit := addedFlags.criteria(strings.Join(args, " "))
		crit.AddedWithin = time.Duration(addedDays) * 24 * time.Hour
		addedFlags.run(idx.Added, crit, "added")
		return nil
	},
}

var removedCmd = &cobra.Command{
	Use:   "removed [query]",
	Short: "List items that left their shop",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		crit := removedFlags.criteria(strings.Join(args, " "))
		crit.RemovedWithin = time.Duration(removedDays) * 24 * time.Hour
		removedFlags.run(idx.Removed, crit, "removed")
		return nil
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse [town] [shop]",
	Short: "Walk the town, shop and room directory",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		switch len(args) {
		case 0:
			for _, town := range idx.Towns() {
				fmt.Fprintf(w, "%s\t%d shops\n", town, len(idx.Shops(town)))
			}
		case 1:
			for _, shop := range idx.Shops(args[0]) {
				fmt.Fprintf(w, "%s\t%d items\t%d rooms\t%s\n", shop.Name, shop.ItemCount, shop.RoomCount, shop.Sign)
			}
		default:
			summary, rooms, ok := idx.Shop(args[0], args[1])
			if !ok {
				return fmt.Errorf("no shop %q in %q", args[1], args[0])
			}
			fmt.Fprintf(w, "%s\t%s\n", summary.Name, summary.Location)
			for _, room := range rooms {
				fmt.Fprintf(w, "\n[%s]\t%s\n", room.Title, room.Sign)
				for _, item := range room.Items {
					fmt.Fprintf(w, "  %s\t%s\n", item.Name, formatPrice(item.Price))
				}
			}
		}
		return nil
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Write matching live items to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(exportOut) == "" {
			return fmt.Errorf("--out is required")
		}
		idx, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		matched := search.Filter(idx.Items, searchFlags.criteria(strings.Join(args, " ")))
		search.Sort(matched, searchFlags.sortSpec())
		if err := pipeline.ExportItemsToXLSX(matched, exportOut); err != nil {
			return err
		}
		fmt.Printf("exported %d rows to %s\n", len(matched), exportOut)
		return nil
	},
}

var (
	normalizeInput  string
	normalizeOutput string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize one snapshot file into an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if normalizeInput == "" || normalizeOutput == "" {
			return fmt.Errorf("--input and --output are required")
		}
		items, removed, err := pipeline.NormalizeFile(normalizeInput, time.Now(), logger)
		if err != nil {
			return err
		}
		if err := pipeline.ExportItemsToXLSX(append(items, removed...), normalizeOutput); err != nil {
			return err
		}
		fmt.Printf("normalize done items=%d removed=%d output=%s\n", len(items), len(removed), normalizeOutput)
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent catalog loads",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := db.ListLoadRuns(runsLimit)
		if err != nil {
			return err
		}
		last, err := db.GetMetadata(catalog.MetaLastLoad)
		if err != nil {
			return err
		}
		if last != nil {
			fmt.Printf("last good load: %s\n", util.DerefString(last))
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "STARTED\tTRACE\tTOWNS\tITEMS\tADDED\tREMOVED\tFAILED\tMS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.0f\n", r.StartedAt, r.TraceID, r.Towns, r.Items, r.Added, r.Removed, r.Failed, r.TotalMs)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API and upload relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Run(cmd.Context(), cfg, db, logger)
	},
}

func init() {
	searchFlags.register(searchCmd, search.ViewItems, search.FieldName)
	addedFlags.register(addedCmd, search.ViewAdded, search.FieldAddedDate)
	removedFlags.register(removedCmd, search.ViewRemoved, search.FieldRemovedDate)
	searchFlags.register(exportCmd, search.ViewItems, search.FieldName)

	addedCmd.Flags().IntVar(&addedDays, "days", 1, "only items added within this many days")
	removedCmd.Flags().IntVar(&removedDays, "days", 0, "only items removed within this many days, 0 for all")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output xlsx path")
	normalizeCmd.Flags().StringVar(&normalizeInput, "input", "", "snapshot json file")
	normalizeCmd.Flags().StringVar(&normalizeOutput, "output", "", "output xlsx path")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "rows to show")
}

func printItems(items []*internal.NormalizedItem, limit int, recency string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	shown := items
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, item := range shown {
		extra := ""
		switch recency {
		case "added":
			extra = item.AddedDate
		case "removed":
			extra = item.RemovedDate
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", item.Name, formatPrice(item.Price), item.Town, item.ShopName, item.Room, extra)
	}
	fmt.Fprintf(w, "%d of %d items\n", len(shown), len(items))
}

func formatPrice(price *int) string {
	if price == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *price)
}
