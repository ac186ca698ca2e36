package main

import (
	"fmt"
	"grievance/backend/internal/deadline"
	"grievance/backend/internal/escalation"
	"grievance/backend/internal/models"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bad  = color.New(color.FgRed).SprintFunc()
)

const timeLayout = "02 Jan 2006 15:04"

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Escalate every overdue In Progress complaint once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := escalation.NewSweeper(a.store, a.grievances).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), warn("No complaints escalated"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Escalated %d complaint(s)\n", ok("✓"), n)
			return nil
		},
	}
}

func newOverdueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List In Progress complaints past their deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			complaints, err := a.store.FindOverdueComplaints(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if len(complaints) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ok("No overdue complaints"))
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tURGENCY\tASSIGNED TO\tDEADLINE\tTITLE")
			for _, c := range complaints {
				assignee := "-"
				if c.AssignedTo != nil {
					assignee = strconv.FormatUint(uint64(*c.AssignedTo), 10)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Urgency, assignee,
					bad(c.Deadline.In(deadline.Location).Format(timeLayout)), c.Title)
			}
			return w.Flush()
		},
	}
}

func newDeleteComplaintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-complaint <complaint_id>",
		Short: "Delete a complaint and its records, keeping the audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, err := a.actor(cmd.Context())
			if err != nil {
				return fmt.Errorf("no admin to act as: %w", err)
			}
			if err := a.grievances.Delete(cmd.Context(), id, admin); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Complaint %d deleted\n", ok("✓"), id)
			return nil
		},
	}
}

func newEscalationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "escalations <complaint_id>",
		Short: "Show the escalation history of a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := a.store.ListEscalations(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Complaint %d was never escalated\n", id)
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tFROM\tTO\tREASON")
			for _, e := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.CreatedAt.In(deadline.Location).Format(timeLayout),
					fromUser(e), e.EscalatedTo, warn(e.Reason))
			}
			return w.Flush()
		},
	}
}

func fromUser(e models.Escalation) string {
	if e.EscalatedFrom == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*e.EscalatedFrom), 10)
}

func newSetRoleCmd(a *app) *cobra.Command {
	var committee bool
	cmd := &cobra.Command{
		Use:   "set-role <user_id> <Student|Staff|Admin>",
		Short: "Change a user's role and committee membership",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, err := a.actor(cmd.Context())
			if err != nil {
				return fmt.Errorf("no admin to act as: %w", err)
			}
			user, err := a.accounts.UpdateRoleAndMembership(cmd.Context(), id, models.Role(args[1]), committee, admin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s (committee member: %t)\n",
				ok("✓"), user.Name, user.Role, user.IsCommitteeMember())
			return nil
		},
	}
	cmd.Flags().BoolVar(&committee, "committee", false, "make the user a committee member (Staff only)")
	return cmd
}
