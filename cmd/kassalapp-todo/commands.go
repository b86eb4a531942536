package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/kassalapp-todo/internal/api"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/logging"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "List the shopping lists of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			lists, err := newAPIClient(cfg).ShoppingLists(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return printJSON(out, lists)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTITY\tLIST\tTITLE")
			for _, l := range lists {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", todo.EntityID(l.ID), l.ID, l.Title)
			}
			return tw.Flush()
		},
	}
}

// newItemsCmd prints one list in stored order, the same order the
// service displays.
func newItemsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "items <list-id>",
		Short: "Show the items of a shopping list in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("list id %q: %w", args[0], err)
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			opened, err := openStore(cmd.Context(), cfg, logging.Discard())
			if err != nil {
				return err
			}
			defer opened.Close()

			remote, err := newAPIClient(cfg).ShoppingListItems(cmd.Context(), listID)
			if err != nil {
				return err
			}
			items := make([]todo.Item, 0, len(remote))
			for _, r := range remote {
				items = append(items, todo.ItemFromRemote(r))
			}
			items = ordering.SortItems(opened.store, todo.EntityID(listID), items)

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return printJSON(out, items)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UID\tSTATUS\tSUMMARY")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", it.UID, it.Status, it.Summary)
			}
			return tw.Flush()
		},
	}
}

func newWeightsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect or reset stored item order",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [entity-id]",
		Short: "Print the ordering record, or one list's weights",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			opened, err := openStore(cmd.Context(), cfg, logging.Discard())
			if err != nil {
				return err
			}
			defer opened.Close()

			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), opened.store.Snapshot())
			}
			return printJSON(cmd.OutOrStdout(), opened.store.Weights(args[0]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <entity-id>",
		Short: "Forget the custom order of one list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			opened, err := openStore(cmd.Context(), cfg, logging.Discard())
			if err != nil {
				return err
			}
			defer opened.Close()

			opened.store.ClearWeights(args[0])
			if err := opened.store.Save(cmd.Context(), false); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order of %s reset\n", args[0])
			return nil
		},
	})
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			token, err := api.NewToken(cfg.Security.JWT.Secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the SQLite schema used by the sqlite storage backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Migrate(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.MigrateDown(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, pending, err := db.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE")
			for _, m := range applied {
				fmt.Fprintf(tw, "%s\tapplied\n", m.Version)
			}
			for _, m := range pending {
				fmt.Fprintf(tw, "%s_%s\tpending\n", m.Version, m.Name)
			}
			return tw.Flush()
		},
	})
	return cmd
}
