package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/404wolf/gpusensorfs/cmd"
	"github.com/joho/godotenv"
)

// loadEnvFile loads GPUSENSORFS_* overrides from a .env file when there is one
func loadEnvFile() {
	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env file:", err)
	}
}

func main() {
	loadEnvFile()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
