package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/castlemilk/pfinance/assistant/internal/config"
	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/extraction/eval"
	"github.com/castlemilk/pfinance/assistant/internal/llm"
	"github.com/castlemilk/pfinance/assistant/internal/service"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Spending report for the last N days",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Value:   7,
				Usage:   "Number of days, today included",
			},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			report, err := a.tracker.SpendingReport(c.Context, c.Int("days"))
			if err != nil {
				return err
			}
			out := c.App.Writer
			fmt.Fprintf(out, "BÁO CÁO CHI TIÊU %d NGÀY\n\n", report.Days)
			printReport(out, report)
			fmt.Fprintf(out, "\nSố dư hiện tại: %s\n", service.FormatVND(report.Balance.Total()))
			return nil
		}),
	}
}

func recentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recent transactions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   10,
				Usage:   "Maximum number of transactions",
			},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			txs, err := a.tracker.RecentTransactions(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Fprintln(c.App.Writer, "Chưa có giao dịch nào!")
				return nil
			}
			printTransactions(c.App.Writer, txs)
			return nil
		}),
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show cash and bank balances",
		Action: withApp(func(c *cli.Context, a *app) error {
			b, err := a.tracker.BalanceSummary(c.Context)
			if err != nil {
				return err
			}
			printBalance(c.App.Writer, b)
			return nil
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Rewrite the spreadsheet mirror with all data",
		Action: withApp(func(c *cli.Context, a *app) error {
			err := a.tracker.ExportAll(c.Context)
			if errors.Is(err, service.ErrMirrorDisabled) {
				return fmt.Errorf("%w: set SHEETS_ENABLED=true to enable it", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Đã export toàn bộ dữ liệu vào %s\n", a.cfg.Sheets.Path)
			if a.cfg.Sheets.GCSBucket != "" {
				fmt.Fprintf(c.App.Writer, "Bản sao: gs://%s/%s\n", a.cfg.Sheets.GCSBucket, a.cfg.Sheets.GCSObject)
			}
			return nil
		}),
	}
}

func modelCommand() *cli.Command {
	return &cli.Command{
		Name:  "model",
		Usage: "Manage the model registry in app_config.json",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered models",
				Action: func(c *cli.Context) error {
					_, appConfig, _, err := loadSettings(c)
					if err != nil {
						return err
					}
					current, _ := appConfig.Current()
					tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
					defer tw.Flush()
					fmt.Fprintln(tw, "\tNAME\tPROVIDER\tMODEL")
					for _, name := range appConfig.Models() {
						ms := appConfig.ModelSettings[name]
						marker := ""
						if name == current {
							marker = "*"
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, name, ms.Provider, ms.ModelName)
					}
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Select the model used by default",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one model name")
					}
					_, appConfig, _, err := loadSettings(c)
					if err != nil {
						return err
					}
					if err := appConfig.SetModel(c.Args().First()); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Đã chọn mô hình %s (%s)\n", c.Args().First(), appConfig.Path())
					return nil
				},
			},
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Probe every registered model",
		Action: func(c *cli.Context) error {
			cfg, appConfig, log, err := loadSettings(c)
			if err != nil {
				return err
			}
			current, _ := appConfig.Current()
			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			defer tw.Flush()

			fmt.Fprintln(tw, "NAME\tPROVIDER\tSTATUS")
			for _, name := range appConfig.Models() {
				ms := appConfig.ModelSettings[name]
				status := probeModel(c.Context, name, ms, cfg)
				if name == current {
					name += " (current)"
				}
				log.Debug().Str("model", name).Str("status", status).Msg("probed")
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, ms.Provider, status)
			}
			return nil
		},
	}
}

func probeModel(ctx context.Context, name string, ms config.ModelSettings, cfg *config.Config) string {
	model, err := llm.New(ctx, name, ms)
	if err != nil {
		return "unavailable: " + err.Error()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.LLM.ProbeTimeout)
	defer cancel()
	if err := model.Probe(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func evalCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "Score extraction against the built-in Vietnamese fixtures",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rules-only",
				Usage: "Skip the model and score only the keyword rules",
			},
		},
		Action: func(c *cli.Context) error {
			fixtures, err := eval.LoadFixtures()
			if err != nil {
				return err
			}
			strategies := map[string]eval.StrategyFunc{"rules": eval.RulesStrategy()}

			if !c.Bool("rules-only") {
				a, err := newApp(c)
				if err != nil {
					return err
				}
				defer a.close()
				if a.extractor.State() == extraction.StateModelActive {
					strategies[a.extractor.ModelName()] = eval.ServiceStrategy(a.extractor)
				}
			}

			eval.PrintSummary(c.App.Writer, eval.RunEval(c.Context, strategies, fixtures))
			return nil
		},
	}
}
