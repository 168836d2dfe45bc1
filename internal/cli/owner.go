package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/model"
)

func init() {
	owner := &cobra.Command{
		Use:   "owner",
		Short: "Manage the owner profile",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create or replace the owner profile",
		Args:  cobra.NoArgs,
		Run:   runOwnerInit,
	}
	initCmd.Flags().String("name", "", "Owner name (required)")
	initCmd.Flags().StringSlice("phrase", nil, "Authorization phrase (repeatable, required)")
	initCmd.Flags().StringSlice("wake", nil, "Wake word (repeatable)")
	initCmd.MarkFlagRequired("name")
	initCmd.MarkFlagRequired("phrase")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective owner profile",
		Args:  cobra.NoArgs,
		Run:   runOwnerShow,
	}

	owner.AddCommand(initCmd, show)
	RootCmd.AddCommand(owner)
}

func runOwnerInit(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	phrases, _ := cmd.Flags().GetStringSlice("phrase")
	wake, _ := cmd.Flags().GetStringSlice("wake")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	profile := &model.OwnerProfile{Name: name, AuthPhrases: phrases, WakeWords: wake}
	if prev := a.gate.Owner(); prev != nil {
		profile.Preferences = prev.Preferences
		profile.LastAccess = prev.LastAccess
	}
	if len(profile.Phrases()) == 0 {
		exitErr("owner init", fmt.Errorf("at least one non-empty --phrase is required"))
	}
	if err := a.backend.SaveOwner(cmd.Context(), profile); err != nil {
		exitErr("owner init", err)
	}
	printJSON(profile)
}

func runOwnerShow(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	owner := a.gate.Owner()
	if owner == nil {
		exitErr("owner show", fmt.Errorf("no owner profile (run `sorma owner init`)"))
	}
	printJSON(owner)
}
