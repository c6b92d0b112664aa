// migrate.go — команда migrate: применение, откат и версия схемы БД.
package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/Vladimir-Titov/challengeup/internal/config"
	"github.com/Vladimir-Titov/challengeup/internal/database"
)

const stepsFlag = "steps"

var downFlags = map[string]cobraflags.Flag{
	stepsFlag: &cobraflags.StringFlag{
		Name:  stepsFlag,
		Value: "1",
		Usage: "Количество откатываемых миграций (0 — все)",
	},
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление схемой БД",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg, config.SetupLogger(cfg)); err != nil {
				return err
			}
			fmt.Println(color.New(color.FgGreen).Sprint("OK"), "миграции применены")
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить миграции",
		RunE: func(*cobra.Command, []string) error {
			steps, err := strconv.Atoi(downFlags[stepsFlag].GetString())
			if err != nil || steps < 0 {
				return fmt.Errorf("некорректное значение --%s: %q", stepsFlag, downFlags[stepsFlag].GetString())
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(cfg, steps, config.SetupLogger(cfg)); err != nil {
				return err
			}
			fmt.Println(color.New(color.FgYellow).Sprint("OK"), "миграции откачены")
			return nil
		},
	}
	cobraflags.RegisterMap(down, downFlags)

	version := &cobra.Command{
		Use:   "version",
		Short: "Показать текущую версию схемы",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			v, dirty, applied, err := database.MigrationVersion(cfg)
			if err != nil {
				return err
			}
			switch {
			case !applied:
				fmt.Println(color.New(color.FgYellow).Sprint("NONE"), "миграции не применены")
			case dirty:
				fmt.Println(color.New(color.FgRed).Sprint("DIRTY"), "версия", v)
			default:
				fmt.Println(color.New(color.FgGreen).Sprint("OK"), "версия", v)
			}
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
