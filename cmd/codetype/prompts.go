package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/codetype/internal/prompts"
)

var importCategory string

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List prompt categories",
		Args:  cobra.NoArgs,
		RunE:  runCategoriesCmd,
	}
}

func runCategoriesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	cats, err := st.Categories(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	for _, c := range cats {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), c); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage stored prompts",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import prompts from a %%-separated file",
		Args:  cobra.ExactArgs(1),
		RunE:  runPromptsImportCmd,
	}
	importCmd.Flags().StringVar(&importCategory, "category", "", "category for imported prompts")
	_ = importCmd.MarkFlagRequired("category")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in prompts",
		Args:  cobra.NoArgs,
		RunE:  runPromptsSeedCmd,
	}

	cmd.AddCommand(importCmd, seedCmd)
	return cmd
}

func runPromptsImportCmd(cmd *cobra.Command, args []string) error {
	category := prompts.NormalizeCategory(importCategory)
	if category == "" {
		return fmt.Errorf("--category must not be empty")
	}
	list, err := prompts.LoadFile(args[0], category)
	if err != nil {
		return err
	}

	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	n, err := st.InsertPrompts(cmd.Context(), list)
	if err != nil {
		return fmt.Errorf("failed to import prompts: %w", err)
	}
	logErrf("Imported %d of %d prompts into %s\n", n, len(list), category)
	return nil
}

func runPromptsSeedCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	n, err := seedDefaults(cmd.Context(), st)
	if err != nil {
		return err
	}
	logErrf("Inserted %d built-in prompts\n", n)
	return nil
}
