package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	get "github.com/hashicorp/go-getter"

	"voxelgate.dev/internal/sim/catalogs"
	"voxelgate.dev/internal/sim/tuning"
	"voxelgate.dev/internal/sim/world"
)

// fetchconfigs pulls a configs directory (blocks.yaml, tuning.yaml) from any
// go-getter source and checks that it loads before replacing the target.
func main() {
	var (
		src = flag.String("src", "", "go-getter source, e.g. git::https://example.com/worlds.git//configs?ref=v1")
		out = flag.String("o", "./configs", "output config directory")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[fetchconfigs] ", log.LstdFlags)
	if *src == "" {
		logger.Fatalf("missing -src")
	}

	staging := *out + ".fetch"
	if err := os.RemoveAll(staging); err != nil {
		logger.Fatalf("clean staging: %v", err)
	}
	logger.Printf("downloading %s", *src)
	if err := get.Get(staging, *src); err != nil {
		logger.Fatalf("download: %v", err)
	}
	if err := check(staging); err != nil {
		_ = os.RemoveAll(staging)
		logger.Fatalf("fetched configs are invalid: %v", err)
	}
	if err := os.RemoveAll(*out); err != nil {
		logger.Fatalf("remove old configs: %v", err)
	}
	if err := os.Rename(staging, *out); err != nil {
		logger.Fatalf("install configs: %v", err)
	}
	logger.Printf("configs installed at %s", *out)
}

func check(dir string) error {
	cats, err := catalogs.Load(dir)
	if err != nil {
		return err
	}
	tune := tuning.Defaults()
	if _, err := os.Stat(filepath.Join(dir, "tuning.yaml")); err == nil {
		if tune, err = tuning.Load(filepath.Join(dir, "tuning.yaml")); err != nil {
			return err
		}
	}
	// Every block the generator names must exist in the palette.
	_, err = world.New(world.ConfigFromTuning("check", tune), cats, nil)
	return err
}
