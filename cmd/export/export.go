package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/leafscan/server"
	"github.com/cyclopcam/leafscan/server/config"
	"github.com/cyclopcam/leafscan/server/export"
	"github.com/cyclopcam/leafscan/server/resultdb"
	"github.com/cyclopcam/leafscan/server/storage"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("export", "Write every stored result to the export destination")
	configFile := parser.String("c", "config", &argparse.Options{Help: "JSON configuration file", Required: true})
	dir := parser.String("d", "dir", &argparse.Options{Help: "Export to this directory, instead of the destination in the config file", Default: ""})
	overwrite := parser.Flag("", "overwrite", &argparse.Options{Help: "Rewrite files that already exist", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	cfg, err := config.LoadConfig(*configFile)
	check(err)

	var dst storage.Storage
	if *dir != "" {
		dst, err = storage.NewStorageFS(logger, *dir)
	} else {
		dst, err = server.OpenExportStorage(logger, cfg)
	}
	check(err)
	if dst == nil {
		fmt.Printf("No export destination. Either configure 'export' in %v, or use --dir\n", *configFile)
		os.Exit(1)
	}
	defer dst.Close()

	db, err := resultdb.Open(logger, cfg.DB, 0)
	check(err)
	defer db.Close()

	summary, err := export.Export(logger, db, dst, cfg.DownloadPrefix, *overwrite)
	check(err)
	fmt.Printf("Wrote %v files, skipped %v, %v conflicts\n", summary.Written, summary.Skipped, summary.Conflicts)
	for _, url := range summary.URLs {
		fmt.Println(url)
	}
}
