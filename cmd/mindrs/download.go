package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rushteam/mindrs/dataset"
)

var (
	downloadVariant string
	downloadDir     string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and unpack a MIND dataset variant",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, train, dev, utils, err := dataset.MindDataSet(downloadVariant)
		if err != nil {
			return err
		}
		d := dataset.NewDownloader(30 * time.Minute)
		for dir, name := range map[string]string{
			"train": train,
			"valid": dev,
			"utils": utils,
		} {
			logrus.WithFields(logrus.Fields{"resource": name, "dir": dir}).Info("downloading")
			if err := d.DownloadResources(cmd.Context(), url, downloadDir+"/"+dir, name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadVariant, "variant", "small", "MIND variant (large, small, demo)")
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "./data", "Target directory")
}
