package main

import (
	"os"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/myk-org/prreview/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
