package main

import (
	"fmt"
	"os"

	"github.com/Apurer/go-gin-records-api/internal/app/migrate"
)

func main() {
	if err := migrate.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
