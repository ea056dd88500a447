package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dealership/internal/domain"
	"dealership/internal/repository"
)

func vehiclesCmd() *cobra.Command {
	var (
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "List the inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			vehicles, err := b.vehicles.List(cmd.Context(), repository.VehicleFilter{
				Status: domain.VehicleStatus(status),
			})
			if err != nil {
				return fmt.Errorf("list vehicles: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(vehicles)
			}
			return printVehicles(cmd.OutOrStdout(), vehicles)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (available, reserved)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")

	return cmd
}

func printVehicles(w io.Writer, vehicles []*domain.Vehicle) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPRICE\tDEPOSIT")
	for _, v := range vehicles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\n", v.ID, v.Name, v.Status, v.Price, v.DepositAmount)
	}
	return tw.Flush()
}
