package notify

import (
	"fmt"
	"strings"
	"time"

	"pfwatch/internal/model"
)

const descriptionLimit = 20

// FormatFound formats the system notification for newly found listings.
func FormatFound(listings []model.Listing, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d listing(s)", len(listings))
	if label != "" {
		fmt.Fprintf(&b, " [%s]", label)
	}
	if len(listings) > 0 {
		first := listings[0]
		fmt.Fprintf(&b, "\n\nFirst: #%d %s - %s", first.ID, first.Name, first.Duty)
	}
	return b.String()
}

// FormatExpired formats an expired listing.
func FormatExpired(l model.Listing, reason string) string {
	if reason == "" {
		reason = "listing ended or was deleted"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Listing expired: #%d\n", l.ID)
	fmt.Fprintf(&b, "Name: %s\n", l.Name)
	fmt.Fprintf(&b, "World: %s/%s\n", l.CreatedWorld, l.Datacenter)
	fmt.Fprintf(&b, "Duty: %s\n", l.Duty)
	fmt.Fprintf(&b, "Reason: %s", reason)
	return b.String()
}

// FormatUpdated formats an updated listing.
func FormatUpdated(l model.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Listing updated: #%d\n", l.ID)
	fmt.Fprintf(&b, "Name: %s\n", l.Name)
	fmt.Fprintf(&b, "World: %s/%s\n", l.CreatedWorld, l.Datacenter)
	fmt.Fprintf(&b, "Duty: %s\n", l.Duty)
	fmt.Fprintf(&b, "Description: %s\n", l.Description)
	fmt.Fprintf(&b, "Party: %d/%d\n", l.SlotsFilled, l.SlotsAvailable)
	fmt.Fprintf(&b, "Time left: %d min", int(l.Remaining().Minutes()))
	return b.String()
}

// FormatRow formats a listing as a single table row.
func FormatRow(l model.Listing, now time.Time) string {
	updated := Ago(now, l.UpdatedAt.Time)
	if now.Sub(l.UpdatedAt.Time) < 2*time.Minute {
		updated += " *"
	}
	return fmt.Sprintf("%-10d %-16s %-20s %-22s %d/%d  %3d min  %s",
		l.ID, l.Name, l.Duty, truncate(l.Description, descriptionLimit),
		l.SlotsFilled, l.SlotsAvailable, int(l.Remaining().Minutes()), updated)
}

// Ago renders the time elapsed since t as "42s ago", "5m ago", "3h ago" or
// "2d ago".
func Ago(now, t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	secs := int(now.Sub(t).Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh ago", secs/3600)
	default:
		return fmt.Sprintf("%dd ago", secs/86400)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
