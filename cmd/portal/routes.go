package main

import (
	"os"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/upb/campusiq-portal/internal/routing"
	"github.com/upb/campusiq-portal/models"
)

func newRoutesCmd() *cobra.Command {
	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect the portal route table",
	}

	var file string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a route table and print it",
		Long: `Loads the route table the gateway would serve and reports configuration
errors such as a role without a home or a home its own role cannot open.
Without --file the ROUTES_FILE variable is used, then the built-in table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = os.Getenv("ROUTES_FILE")
			}
			table, err := routing.Load(file)
			if err != nil {
				pterm.Error.WithWriter(cmd.ErrOrStderr()).Printf("route table is invalid: %v\n", err)
				return err
			}
			return renderTable(cmd, table)
		},
	}
	checkCmd.Flags().StringVar(&file, "file", "", "route table YAML file")

	routesCmd.AddCommand(checkCmd)
	return routesCmd
}

func renderTable(cmd *cobra.Command, table *routing.Table) error {
	out := cmd.OutOrStdout()

	pterm.DefaultSection.WithWriter(out).Println("Routes")
	rows := pterm.TableData{{"PATH", "ROLES"}}
	for _, rule := range table.Rules {
		roles := "any authenticated"
		if rule.Restricted() {
			names := make([]string, 0, len(rule.AllowedRoles))
			for _, role := range rule.AllowedRoles {
				names = append(names, string(role))
			}
			roles = strings.Join(names, ", ")
		}
		rows = append(rows, []string{rule.Path, roles})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).WithWriter(out).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.WithWriter(out).Println("Homes")
	homes := pterm.TableData{{"ROLE", "HOME"}}
	roles := models.AllRoles()
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, role := range roles {
		home, _ := table.Homes.Home(role)
		homes = append(homes, []string{string(role), home})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(homes).WithWriter(out).Render(); err != nil {
		return err
	}

	pterm.Success.WithWriter(out).Printf("route table is valid (login %s, root %s)\n", table.LoginPath, table.RootPath)
	return nil
}
