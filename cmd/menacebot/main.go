package main

import (
	"log"
	"os"

	corecmd "github.com/m3rciful/menacebot/core/cmd"
	"github.com/m3rciful/menacebot/internal/bot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        bot.LoadConfig,
		Bootstrap:         bot.Bootstrap,
	})
	if err != nil {
		log.Printf("menacebot: %v", err)
		os.Exit(1)
	}
}
