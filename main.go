package main

import (
	"log"
	"os"
	_ "time/tzdata"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/tibber-price-alert/cmd"
)

func main() {
	app := &cli.App{
		Name:   "tibber-price-alert",
		Usage:  "push a notification when the current hour is the cheapest electricity hour of the day",
		Action: cmd.RunCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "check prices on the configured schedule until interrupted",
				Action: cmd.RunCommand,
			},
			{
				Name:   "check",
				Usage:  "check prices once and exit",
				Action: cmd.CheckCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
