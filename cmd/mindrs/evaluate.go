package main

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/mindrs/config"
)

var evalPrefix string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a model on the dev split",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromYAML(cfgPath)
		if err != nil {
			return err
		}
		t, err := buildTrainer(cfg)
		if err != nil {
			return err
		}
		_, err = t.Evaluate(cmd.Context(), nil, nil, 0, evalPrefix)
		return err
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalPrefix, "prefix", "", "Prefix for result metric keys")
}
