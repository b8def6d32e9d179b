// Package alert delivers price-drop notifications.
package alert

import (
	"context"
	"errors"
	"fmt"
)

// Notification is the data sent to alert destinations.
type Notification struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	URL         string   `json:"url"`
	ProductID   string   `json:"product_id"`
	ProductName string   `json:"product_name"`
	OldPrice    float64  `json:"old_price"`
	NewPrice    float64  `json:"new_price"`
	DropPercent float64  `json:"drop_percent"`
	Reviews     []string `json:"reviews,omitempty"`
}

// PriceDrop builds the notification for a product whose lowest price fell
// from oldPrice to newPrice.
func PriceDrop(productID, name, url string, oldPrice, newPrice float64) *Notification {
	return &Notification{
		Title:       "Price drop: " + name,
		Body:        fmt.Sprintf("%s fell from %.2f to %.2f (%.1f%% off).", name, oldPrice, newPrice, DropPercent(oldPrice, newPrice)),
		URL:         url,
		ProductID:   productID,
		ProductName: name,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		DropPercent: DropPercent(oldPrice, newPrice),
	}
}

// DropPercent is the relative fall from oldPrice to newPrice, in percent.
func DropPercent(oldPrice, newPrice float64) float64 {
	if oldPrice <= 0 || newPrice >= oldPrice {
		return 0
	}
	return (oldPrice - newPrice) / oldPrice * 100
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
