package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/helios"
	"github.com/KevinKickass/HomeGateway/internal/presets"
)

var (
	readAll    bool
	jsonOutput bool
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the parameter table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKEY\tKIND\tCOUNT\tACCESS")
		for _, name := range helios.Default.Names() {
			desc, _ := helios.Default.Descriptor(name)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", desc.Name, desc.Key, desc.Kind, desc.Count, helios.Default.Access(name))
		}
		return w.Flush()
	},
}

var readCmd = &cobra.Command{
	Use:   "read [parameter...]",
	Short: "Read parameters from the unit",
	Long: `Read one or more parameters from the unit, or all readable ones with --all.

Example:
  homegateway read VentilationLevel OutdoorAirTemperature
  homegateway read --all --json`,
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <parameter> <value>",
	Short: "Write one parameter",
	Long: `Write one parameter. Booleans accept true/false/on/off/1/0, enums their
member name or ordinal, dates dd.MM.yy or yyyy-MM-dd, time spans hh:mm:ss.`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

var applyCmd = &cobra.Command{
	Use:   "apply <preset>",
	Short: "Apply a preset from presets.search_paths",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func init() {
	readCmd.Flags().BoolVar(&readAll, "all", false, "Read every readable parameter")
	readCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	rootCmd.AddCommand(paramsCmd, readCmd, writeCmd, applyCmd)
}

// withManager runs fn against a device manager without poller.
func withManager(cmd *cobra.Command, fn func(ctx context.Context, m *devices.Manager) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := zap.NewNop()
	if cfg.Logging.Development {
		if logger, err = newLogger(cfg.Logging); err != nil {
			return err
		}
	}

	hc := cfg.Helios
	hc.PollInterval = 0

	m := devices.NewManager(hc, devices.ManagerOptions{}, logger)
	ctx := cmd.Context()
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop(context.Background())

	return fn(ctx, m)
}

func runRead(cmd *cobra.Command, args []string) error {
	if !readAll && len(args) == 0 {
		return fmt.Errorf("name at least one parameter or use --all")
	}

	return withManager(cmd, func(ctx context.Context, m *devices.Manager) error {
		type result struct {
			Name   string        `json:"name"`
			Value  helios.Value  `json:"value"`
			Status helios.Status `json:"status"`
		}
		var results []result

		if readAll {
			if _, err := m.Refresh(ctx); err != nil {
				return err
			}
			for name, e := range m.Cache().All() {
				results = append(results, result{Name: name, Value: e.Value, Status: e.Status})
			}
			sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
		} else {
			for _, name := range args {
				if _, err := m.Registry().Descriptor(name); err != nil {
					return err
				}
				if !m.Registry().IsReadable(name) {
					return fmt.Errorf("parameter %s is not readable", name)
				}
				v, st := m.ReadParameter(ctx, name)
				results = append(results, result{Name: name, Value: v, Status: st})
			}
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range results {
			value := r.Value.String()
			if r.Status != helios.Good {
				value = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, value, r.Status)
		}
		return w.Flush()
	})
}

func runWrite(cmd *cobra.Command, args []string) error {
	name, text := args[0], args[1]

	desc, err := helios.Default.Descriptor(name)
	if err != nil {
		return err
	}
	if !helios.Default.IsWritable(name) {
		return fmt.Errorf("parameter %s is not writable", name)
	}
	v, err := helios.ParseValue(desc, text)
	if err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *devices.Manager) error {
		st := m.WriteParameter(ctx, name, v, "cli")
		if st != helios.Good {
			return fmt.Errorf("write %s failed: %s", name, st)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, v)
		return nil
	})
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loader, err := presets.NewLoader(cfg.Presets.SearchPaths, nil)
	if err != nil {
		return err
	}
	preset, err := loader.Load(args[0])
	if err != nil {
		return err
	}
	if _, err := presets.Resolve(helios.Default, preset); err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *devices.Manager) error {
		results, err := presets.Apply(ctx, m, preset)
		if err != nil {
			return err
		}

		failed := 0
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, r := range results {
			if r.Status != helios.Good {
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Parameter, r.Value, r.Status)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d values failed", failed, len(results))
		}
		return nil
	})
}
