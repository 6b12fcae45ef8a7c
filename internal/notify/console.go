package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pfwatch/internal/model"
)

// Console writes events to a terminal and forwards found/expired events to
// an optional system Sender.
type Console struct {
	mu            sync.Mutex
	out           io.Writer
	system        Sender
	systemEnabled bool
	now           func() time.Time
	maxRows       int
	styles        map[StatusKind]lipgloss.Style
	header        lipgloss.Style
}

// NewConsole creates a Console writing to out. system may be nil.
func NewConsole(out io.Writer, system Sender, systemEnabled bool) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:           out,
		system:        system,
		systemEnabled: systemEnabled && system != nil,
		now:           time.Now,
		maxRows:       20,
		styles: map[StatusKind]lipgloss.Style{
			Dim:   r.NewStyle().Faint(true),
			Info:  r.NewStyle().Foreground(lipgloss.Color("6")),
			OK:    r.NewStyle().Foreground(lipgloss.Color("2")),
			Warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
			Error: r.NewStyle().Foreground(lipgloss.Color("1")),
		},
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
	}
}

// SetClock overrides the time source used for timestamps.
func (c *Console) SetClock(now func() time.Time) {
	c.now = now
}

// NotifyFound prints the new listings and, when allowed, sends a system
// notification.
func (c *Console) NotifyFound(listings []model.Listing, label string, allowSystem bool) {
	if len(listings) == 0 {
		return
	}
	title := "Found matching listings"
	if label != "" {
		title += " (" + label + ")"
	}
	c.ShowListings(title, listings)

	if !allowSystem {
		c.ShowStatus(Dim, "targets are being watched, system notification suppressed")
		return
	}
	if c.systemEnabled {
		c.system.SendNotification(FormatFound(listings, label))
	}
}

// NotifyExpired prints an expired listing and sends a system notification.
func (c *Console) NotifyExpired(l model.Listing, reason string) {
	msg := FormatExpired(l, reason)
	c.print(c.styles[Error].Render(msg))
	if c.systemEnabled {
		c.system.SendNotification(msg)
	}
}

// NotifyUpdated prints an updated listing. Updates never raise a system
// notification.
func (c *Console) NotifyUpdated(l model.Listing) {
	c.print(c.styles[Info].Render(FormatUpdated(l)))
}

// ShowStatus prints a timestamped status line.
func (c *Console) ShowStatus(kind StatusKind, text string) {
	ts := c.styles[Dim].Render(c.now().Format("15:04:05"))
	c.print(ts + " " + c.styles[kind].Render(text))
}

// ShowListings prints up to maxRows listings as a table.
func (c *Console) ShowListings(title string, listings []model.Listing) {
	if len(listings) == 0 {
		return
	}
	now := c.now()
	rows := listings
	if len(rows) > c.maxRows {
		rows = rows[:c.maxRows]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out)
	_, _ = fmt.Fprintln(c.out, c.styles[OK].Render(fmt.Sprintf("%s (%d)", title, len(listings))))
	_, _ = fmt.Fprintln(c.out, c.header.Render(fmt.Sprintf("%-10s %-16s %-20s %-22s %-5s %-8s %s",
		"ID", "Name", "Duty", "Description", "Party", "Left", "Updated")))
	for _, l := range rows {
		_, _ = fmt.Fprintln(c.out, FormatRow(l, now))
	}
	if len(listings) > len(rows) {
		_, _ = fmt.Fprintln(c.out, c.styles[Dim].Render(fmt.Sprintf("... and %d more", len(listings)-len(rows))))
	}
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, s)
}
