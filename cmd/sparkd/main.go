package main

import (
	"flag"
	"fmt"
	"os"
	"sparkd/internal/di"
	"sparkd/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the configuration file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "enable debug endpoints")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "sparkd: %s\n", err)
		os.Exit(1)
	}
}
