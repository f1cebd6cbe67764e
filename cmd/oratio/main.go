package main

import (
	"os"

	"github.com/ternarybob/oratio/cmd/oratio/cmd"
	"github.com/ternarybob/oratio/internal/common"
)

func main() {
	common.InstallCrashHandler("")
	defer common.RecoverWithCrashFile()

	// Pick up the .version file when the binary was built without
	// ldflags.
	common.Version = common.LoadVersionFromFile()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
