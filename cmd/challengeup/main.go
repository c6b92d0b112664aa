// main.go — точка входа ChallengeUp.
// Команды: serve — HTTP API; migrate — управление схемой БД.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/Vladimir-Titov/challengeup/internal/config"
)

const envFileFlag = "env-file"

// rootFlags — флаги, общие для всех команд.
var rootFlags = map[string]cobraflags.Flag{
	envFileFlag: &cobraflags.StringFlag{
		Name:  envFileFlag,
		Value: "",
		Usage: "Путь к .env-файлу (по умолчанию .env, если существует)",
	},
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "challengeup",
		Short:         "ChallengeUp API — челленджи, пользователи и их контакты",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadEnvFile(rootFlags[envFileFlag].GetString())
		},
	}
	cobraflags.RegisterMap(root, rootFlags)

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
