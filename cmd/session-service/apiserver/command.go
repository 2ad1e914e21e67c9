package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/lazari03/pyetdoktorin-sessions/internal/business"
	"github.com/lazari03/pyetdoktorin-sessions/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Session service API server",
		"Session service API server hosts the public session lifecycle HTTP API",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
