package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/contribsync/internal/app/version"
)

var versionJSON bool

// versionCmd 输出版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSON {
			return printJSON(cmd.OutOrStdout(), version.GetBuildInfo())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "以JSON输出")
}
