package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stocksim/config"
	"stocksim/market"
	"stocksim/marketdata"
	"stocksim/sim"
	"stocksim/strategies"
)

type runOptions struct {
	symbol     string
	start      string
	end        string
	strategy   string
	paramsFile string
	params     []string
	dataFile   string
	full       bool
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	ropts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest and print the result",
		Long: `Run one simulation against daily history and print the portfolio
summary plus the executed buys and sells.

Strategy parameters come from --params-file (YAML) or repeated
--param key=value flags. With --data the history is read from a local
CSV (.csv, .csv.xz or .zip) instead of the remote provider.

Available strategies: ` + strings.Join(strategies.Names(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd, opts, ropts)
		},
	}

	cmd.Flags().StringVarP(&ropts.symbol, "symbol", "s", "", "Ticker symbol (required)")
	cmd.Flags().StringVar(&ropts.start, "start", "", "Start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&ropts.end, "end", "", "End date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&ropts.strategy, "strategy", "MeanReversion", "Strategy name")
	cmd.Flags().StringVar(&ropts.paramsFile, "params-file", "", "YAML file with strategy parameters")
	cmd.Flags().StringArrayVar(&ropts.params, "param", nil, "Strategy parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&ropts.dataFile, "data", "", "Local history file instead of the remote provider")
	cmd.Flags().BoolVar(&ropts.full, "full", false, "Print every daily value row, not just the summary")

	for _, name := range []string{"symbol", "start", "end"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func runBacktest(cmd *cobra.Command, opts *rootOptions, ropts *runOptions) error {
	start, err := time.Parse("2006-01-02", ropts.start)
	if err != nil {
		return fmt.Errorf("bad --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", ropts.end)
	if err != nil {
		return fmt.Errorf("bad --end: %w", err)
	}

	params, err := loadParams(ropts.paramsFile, ropts.params)
	if err != nil {
		return err
	}

	log := newLogger(opts.logLevel)

	var provider marketdata.Provider
	if ropts.dataFile != "" {
		provider = marketdata.NewFileProvider(ropts.dataFile)
	} else {
		cfg := config.Default()
		if opts.configPath != "" {
			if cfg, err = config.LoadFromFile(opts.configPath); err != nil {
				return err
			}
		}
		provider = marketdata.NewYahooClient(cfg.Provider.BaseURL, cfg.Provider.RequestsPerMinute)
		if cfg.Provider.CachePath != "" {
			cache, cerr := marketdata.NewCache(cfg.Provider.CachePath, provider)
			if cerr != nil {
				return fmt.Errorf("open bar cache: %w", cerr)
			}
			defer cache.Close()
			provider = cache
		}
	}

	engine := sim.NewEngine(provider, log)
	out, err := engine.Run(cmd.Context(), sim.Request{
		Symbol:   ropts.symbol,
		Start:    market.Day(start),
		End:      market.Day(end),
		Strategy: ropts.strategy,
		Config:   params,
	})
	if err != nil {
		return err
	}

	printOutput(out, ropts.full)
	return nil
}

// loadParams merges a YAML parameter file with --param key=value overrides.
func loadParams(path string, pairs []string) (strategies.Config, error) {
	params := strategies.Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read params file: %w", err)
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("parse params file: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad --param %q, want key=value", pair)
		}
		params[key] = coerceParam(value)
	}
	return params, nil
}

// coerceParam turns a flag value into the type strategy configs expect:
// int, then float, then plain string.
func coerceParam(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func printOutput(out *sim.Output, full bool) {
	if len(out.Values) == 0 {
		fmt.Printf("run %s: no trading days in range\n", out.ID)
		return
	}
	first := out.Values[0]
	last := out.Values[len(out.Values)-1]

	fmt.Printf("run %s: %d trading days, %d buys, %d sells\n",
		out.ID, len(out.Values), len(out.Buys), len(out.Sells))
	fmt.Printf("portfolio value %.2f -> %.2f\n\n", first.Value, last.Value)

	if full {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Date", "Stock", "Signal", "Value")
		for _, v := range out.Values {
			table.Append(
				v.Date.Format("2006-01-02"),
				fmt.Sprintf("%.2f", v.Stock),
				fmt.Sprintf("%+.0f", v.Signal),
				fmt.Sprintf("%.2f", v.Value),
			)
		}
		table.Render()
		fmt.Println()
	}

	if len(out.Buys) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Date", "Bought", "Buy Price")
		for _, b := range out.Buys {
			table.Append(
				b.Date.Format("2006-01-02"),
				fmt.Sprintf("%.2f", b.Bought),
				fmt.Sprintf("%.2f", b.BuyPrice),
			)
		}
		table.Render()
		fmt.Println()
	}

	if len(out.Sells) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Date", "Sells", "Sell Price")
		for _, s := range out.Sells {
			table.Append(
				s.Date.Format("2006-01-02"),
				fmt.Sprintf("%.2f", s.Sells),
				fmt.Sprintf("%.2f", s.SellPrice),
			)
		}
		table.Render()
	}
}
