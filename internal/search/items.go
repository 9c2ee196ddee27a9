package search

import (
	"fmt"
	"strings"

	"github.com/starford/flipdesk/internal/models"
)

// LeadItem renders a lead as a search hit.
func LeadItem(l models.Lead) Item {
	title := l.Address
	if title == "" {
		title = l.OwnerName
	}
	return Item{
		Type:     TypeLead,
		ID:       l.ID,
		Title:    title,
		Subtitle: joinNonEmpty(" - ", l.OwnerName, place(l.City, l.State, "")),
		Path:     fmt.Sprintf("/leads/%d", l.ID),
	}
}

// PropertyItem renders a property as an opportunity hit.
func PropertyItem(p models.Property) Item {
	return Item{
		Type:     TypeOpportunity,
		ID:       p.ID,
		Title:    p.Address,
		Subtitle: joinNonEmpty(" - ", place(p.City, p.State, p.ZipCode), p.Status),
		Path:     fmt.Sprintf("/opportunities/%d", p.ID),
	}
}

// ContactItem renders a contact as a search hit.
func ContactItem(c models.Contact) Item {
	return Item{
		Type:     TypeContact,
		ID:       c.ID,
		Title:    c.Name,
		Subtitle: joinNonEmpty(" - ", c.Company, firstNonEmpty(c.Email, c.Phone)),
		Path:     fmt.Sprintf("/contacts/%d", c.ID),
	}
}

// place formats "City, ST 12345", omitting empty parts.
func place(city, state, zip string) string {
	return joinNonEmpty(" ", joinNonEmpty(", ", city, state), zip)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
