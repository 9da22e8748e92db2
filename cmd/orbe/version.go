package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// выставляются через -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

var printAllVersion bool

var versionTemplate = `Version:	  %s
Go version:	  %s
Git commit:	  %s
OS/Arch:	  %s/%s
`

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		if printAllVersion {
			fmt.Printf(versionTemplate, version, runtime.Version(), commit, runtime.GOOS, runtime.GOARCH)
			return
		}
		fmt.Println(version)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&printAllVersion, "all", false, "Print all version information")
}
