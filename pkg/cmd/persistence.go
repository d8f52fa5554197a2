package cmd

import (
	"strings"

	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/persistence/file"
)

func NewPersistence(databaseURL string) persistence.Persistence {
	root := strings.TrimPrefix(databaseURL, "file://")

	return file.NewPersistence(root)
}
