// Package cli implements the operator console of the embedded client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/iudanet/sitekeeper/internal/client/bridge"
	"github.com/iudanet/sitekeeper/internal/client/content"
	"github.com/iudanet/sitekeeper/internal/client/grace"
	"github.com/iudanet/sitekeeper/internal/client/iocli"
	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

// ErrUnknownCommand is returned by Exec for a command it does not know
var ErrUnknownCommand = errors.New("unknown command")

// Editor is the save side of the embedded client
type Editor interface {
	Edit(ctx context.Context, field, value string, format models.Format) error
	Save(ctx context.Context) (*bridge.SaveResult, error)
	ForceResync(ctx context.Context) error
	Pending() int
}

// ContentStore is the local side of the embedded client
type ContentStore interface {
	Snapshot() *models.Snapshot
	Guard() *grace.Guard
	VerifyIntegrity(ctx context.Context) (*content.IntegrityReport, error)
	Clear(ctx context.Context) error
}

type Cli struct {
	io      iocli.IO
	store   ContentStore
	editor  Editor
	journal storage.SaveJournal
	now     func() time.Time
}

// New creates the console. journal may be nil.
func New(console iocli.IO, store ContentStore, editor Editor, journal storage.SaveJournal) *Cli {
	return &Cli{
		io:       console,
		store:    store,
		editor:   editor,
		journal:  journal,
		now:      time.Now,
	}
}

// Run reads commands until quit, end of input or ctx cancellation.
// Command errors are printed and do not stop the loop.
func (c *Cli) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := c.io.ReadInput("sitekeeper> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}

		quit, err := c.Exec(ctx, line)
		if err != nil {
			c.io.Printf("Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs one command line. It reports whether the console should exit.
func (c *Cli) Exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	switch cmd := strings.ToLower(args[0]); cmd {
	case "help", "?":
		PrintUsage(c.io)
		return false, nil
	case "show":
		return false, c.runShow()
	case "edit":
		return false, c.runEdit(ctx, args[1:])
	case "save":
		return false, c.runSave(ctx)
	case "status", "pending":
		return false, c.runStatus(ctx)
	case "verify":
		return false, c.runVerify(ctx)
	case "resync":
		return false, c.runResync(ctx)
	case "clear":
		return false, c.runClear(ctx)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s (type 'help')", ErrUnknownCommand, cmd)
	}
}

// PrintLoadReport tells the operator which tier the content was recovered from
func (c *Cli) PrintLoadReport(report *content.LoadReport) {
	if report == nil {
		return
	}
	if !report.Recovered() {
		c.io.Println("No stored content found, starting empty.")
	} else {
		c.io.Printf("Loaded %d field(s), version %d, from %s tier.\n", report.Fields, report.Version, report.Source)
	}
	for _, tier := range models.TrustOrder {
		if err, ok := report.Failures[tier]; ok && !errors.Is(err, storage.ErrEmpty) {
			c.io.Printf("Warning: %s tier unreadable: %v\n", tier, err)
		}
	}
}

// PrintUsage prints the console help
func PrintUsage(w iocli.IO) {
	w.Printf("%s", usageText)
}

func (c *Cli) render(tmpl *template.Template, data any) error {
	if err := tmpl.Execute(c.io, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return nil
}
