package command

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-blockdemo/internal/journal"
)

// JournalConfig enables the edit journal when Dir is set.
type JournalConfig struct {
	Dir    string `json:"dir" env:"DIR"`
	Prefix string `json:"prefix" env:"PREFIX"`
}

func (c *JournalConfig) validate() error {
	el := errors.NewErrorList()

	if strings.ContainsAny(c.Prefix, `/\`) {
		el.Add(fmt.Errorf("journal prefix must not contain path separators"))
	}

	return el.Err()
}

func (c *JournalConfig) buildJournal() *journal.Writer {
	if c.Dir == "" {
		return nil
	}

	var opts []journal.WriterOpt
	if c.Prefix != "" {
		opts = append(opts, journal.WithPrefix(c.Prefix))
	}
	return journal.NewWriter(c.Dir, opts...)
}
