package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rushteam/mindrs/config"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a news recommendation model",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromYAML(cfgPath)
		if err != nil {
			return err
		}
		t, err := buildTrainer(cfg)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"epochs":         cfg.Epochs,
			"train_strategy": cfg.TrainStrategy,
			"topic_variant":  cfg.TopicVariant,
			"rank":           cfg.Rank,
			"world_size":     cfg.NumProcesses,
		}).Info("starting training")
		return t.Train(cmd.Context())
	},
}
