package main

import (
	"github.com/octoberswimmer/uibind"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active rule table as YAML",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rules, err := cfg.BuildRules()
	if err != nil {
		return err
	}
	out := uibind.Config{}
	for _, r := range rules {
		out.Rules = append(out.Rules, uibind.RuleConfigOf(r))
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
