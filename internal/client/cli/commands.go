package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/sitekeeper/internal/client/bridge"
	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
)

type fieldView struct {
	Name  string
	Value string
}

type windowView struct {
	Field     string
	Remaining time.Duration
}

type statusView struct {
	Windows  []windowView
	Version  int64
	Pending  int
	LastSave storage.SaveRecord
}

func (c *Cli) runShow() error {
	snap := c.store.Snapshot()
	if snap == nil {
		snap = &models.Snapshot{Data: models.ContentRecord{}}
	}
	data := struct {
		Snapshot *models.Snapshot
		Fields   []fieldView
	}{Snapshot: snap}

	for _, name := range snap.Data.Fields() {
		data.Fields = append(data.Fields, fieldView{Name: name, Value: snap.Data[name]})
	}
	return c.render(contentTemplate, data)
}

// runEdit разбирает: edit [-format F] <field> <value...>
// Значение собирается из оставшихся слов через пробел.
func (c *Cli) runEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(c.io)
	format := fs.String("format", string(models.FormatPlain), "value format: plain, rich or markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: edit [-format F] <field> <value>")
	}
	field, value := rest[0], strings.Join(rest[1:], " ")

	if err := c.editor.Edit(ctx, field, value, models.Format(*format)); err != nil {
		return err
	}
	c.io.Printf("%s updated locally, %d field(s) pending\n", field, c.editor.Pending())
	return nil
}

func (c *Cli) runSave(ctx context.Context) error {
	result, err := c.editor.Save(ctx)

	var rejected *bridge.RejectedError
	switch {
	case errors.As(err, &rejected):
		c.io.Println("Backend rejected some changes:")
		for _, f := range rejected.Fields {
			c.io.Printf("  %s: %s\n", f.FieldName, f.Message)
		}
		c.io.Printf("%d field(s) still pending\n", c.editor.Pending())
		return nil
	case errors.Is(err, bridge.ErrSaveTimeout):
		return fmt.Errorf("host did not answer in time, %d field(s) kept pending: %w", c.editor.Pending(), err)
	case err != nil:
		return fmt.Errorf("save failed: %w", err)
	}

	if result.Saved == 0 && len(result.Fields) == 0 {
		c.io.Println("Nothing to save.")
		return nil
	}
	c.io.Printf("Saved %d field(s): %s\n", result.Saved, strings.Join(result.Fields, ", "))
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	now := c.now()
	view := statusView{Pending: c.editor.Pending()}
	if snap := c.store.Snapshot(); snap != nil {
		view.Version = snap.Version
	}

	for _, w := range c.store.Guard().Active(now) {
		view.Windows = append(view.Windows, windowView{
			Field:     w.FieldName,
			Remaining: time.UnixMilli(w.ExpiresAt).Sub(now).Round(time.Second),
		})
	}

	if c.journal != nil {
		rec, err := c.journal.LastSave(ctx)
		if err != nil {
			c.io.Printf("Warning: failed to read save journal: %v\n", err)
		}
		view.LastSave = rec
	}

	return c.render(statusTemplate, view)
}

func (c *Cli) runVerify(ctx context.Context) error {
	report, err := c.store.VerifyIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	return c.render(integrityTemplate, report)
}

func (c *Cli) runResync(ctx context.Context) error {
	if err := c.editor.ForceResync(ctx); err != nil {
		return fmt.Errorf("resync failed: %w", err)
	}
	c.io.Println("Resync requested, fresh content will be applied when the host answers.")
	return nil
}

func (c *Cli) runClear(ctx context.Context) error {
	answer, err := c.io.ReadInput("Erase content from every tier? [y/N]: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		c.io.Println("Cancelled.")
		return nil
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	c.io.Println("Content cleared.")
	return nil
}
