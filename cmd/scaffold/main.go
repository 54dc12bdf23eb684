// Command scaffold creates the folder of a new mini-app client with a base
// config.json and an empty catalog.json.
//
//	go run ./cmd/scaffold my-shop
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tg_miniapp/internal/config"
	"tg_miniapp/internal/logging"
	"tg_miniapp/internal/repository"
	"tg_miniapp/internal/usecases"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scaffold <client-slug>")
	}
	_ = godotenv.Load()

	cfg, err := config.LoadStorage()
	if err != nil {
		return err
	}

	store := repository.NewDocumentStore(repository.DocumentStoreConfig{
		Root:        cfg.WebRoot,
		ClientsDir:  cfg.ClientsDir,
		CatalogFile: cfg.CatalogFile,
		ConfigFile:  cfg.ConfigFile,
	})
	documents := usecases.NewDocumentUsecase(store, nil, logging.NewLogger(cfg.LogLevel, cfg.LogFormat), nil)

	slug, files, err := documents.ScaffoldClient(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("client %q\n", slug)
	for _, f := range files {
		state := "exists "
		if f.Created {
			state = "created"
		}
		fmt.Printf("  %s %s\n", state, f.Path)
	}
	fmt.Printf("Open the mini-app with ?client=%s or set CLIENT_SLUG=%s for the bot.\n", slug, slug)
	return nil
}
