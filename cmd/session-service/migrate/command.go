package migrate

import (
	"github.com/spf13/cobra"

	"github.com/lazari03/pyetdoktorin-sessions/internal/business"
	"github.com/lazari03/pyetdoktorin-sessions/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Session service migrations",
		"",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
