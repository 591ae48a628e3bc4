// Package catalog holds the clinic's treatment menu. The menu is read-only
// configuration: services are defined at startup and never created or edited
// through the API.
package catalog

import (
	"fmt"
	"sort"
)

const defaultSlotStepMinutes = 15

// Service is one bookable menu item. Duration is copied onto bookings at
// creation time, so editing the menu never rewrites history.
type Service struct {
	ID          string
	Name        string
	Duration    int  // minutes
	Price       *int // yen; nil means "ask at the clinic"
	Description string

	// FirstTimeOnly restricts the service to first-visit customers.
	FirstTimeOnly bool

	// SlotStep overrides the 15-minute slot granularity for this service.
	// Zero means the default.
	SlotStep int

	// SlotMinutes, when non-empty, restricts offered start times to these
	// minute-of-hour values (e.g. {0, 30}).
	SlotMinutes []int
}

// Step returns the slot generation step for this service.
func (s Service) Step() int {
	if s.SlotStep > 0 {
		return s.SlotStep
	}
	return defaultSlotStepMinutes
}

// AllowsMinute reports whether a candidate start time's minute-of-hour is
// permitted for this service.
func (s Service) AllowsMinute(minuteOfHour int) bool {
	if len(s.SlotMinutes) == 0 {
		return true
	}
	for _, m := range s.SlotMinutes {
		if m == minuteOfHour {
			return true
		}
	}
	return false
}

// Catalog is an immutable lookup over the configured services.
type Catalog struct {
	services []Service
	byID     map[string]Service
}

// New validates the services and builds a catalog. Order is preserved for
// menu display.
func New(services []Service) (*Catalog, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("catalog requires at least one service")
	}

	byID := make(map[string]Service, len(services))
	for _, svc := range services {
		if svc.ID == "" {
			return nil, fmt.Errorf("service %q: id is required", svc.Name)
		}
		if svc.Name == "" {
			return nil, fmt.Errorf("service %q: name is required", svc.ID)
		}
		if svc.Duration <= 0 {
			return nil, fmt.Errorf("service %q: duration must be greater than 0", svc.ID)
		}
		if svc.Price != nil && *svc.Price < 0 {
			return nil, fmt.Errorf("service %q: price must be 0 or greater", svc.ID)
		}
		if svc.SlotStep < 0 {
			return nil, fmt.Errorf("service %q: slot step must be 0 or greater", svc.ID)
		}
		for _, m := range svc.SlotMinutes {
			if m < 0 || m > 59 {
				return nil, fmt.Errorf("service %q: slot minute %d out of range", svc.ID, m)
			}
		}
		if _, dup := byID[svc.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", svc.ID)
		}
		byID[svc.ID] = svc
	}

	return &Catalog{services: append([]Service(nil), services...), byID: byID}, nil
}

// Lookup returns the service with the given id.
func (c *Catalog) Lookup(id string) (Service, bool) {
	svc, ok := c.byID[id]
	return svc, ok
}

// All returns every service in menu order.
func (c *Catalog) All() []Service {
	return append([]Service(nil), c.services...)
}

// FirstTime returns the services offered to first-visit customers.
func (c *Catalog) FirstTime() []Service {
	return c.filter(func(s Service) bool { return s.FirstTimeOnly })
}

// Returning returns the services offered to returning customers.
func (c *Catalog) Returning() []Service {
	return c.filter(func(s Service) bool { return !s.FirstTimeOnly })
}

func (c *Catalog) filter(keep func(Service) bool) []Service {
	var out []Service
	for _, svc := range c.services {
		if keep(svc) {
			out = append(out, svc)
		}
	}
	return out
}

// IDs returns the configured service ids in sorted order, mainly for error
// messages and logs.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func intPtr(v int) *int { return &v }

// Default returns the stock clinic menu used when no menu is configured.
func Default() *Catalog {
	cat, err := New([]Service{
		{
			ID:            "first-free-trial",
			Name:          "First Visit Free Trial",
			Duration:      45,
			Price:         intPtr(0),
			Description:   "Covers postpartum discomfort, stiff shoulders, lower back pain and more. Start here.",
			FirstTimeOnly: true,
		},
		{
			ID:          "general-treatment",
			Name:        "General Treatment",
			Duration:    15,
			Description: "Standard treatment for stiff shoulders, back pain and similar complaints.",
		},
		{
			ID:          "postnatal-treatment",
			Name:        "Postnatal Pelvic Correction",
			Duration:    60,
			Description: "Pelvic correction and recovery care after childbirth.",
		},
		{
			ID:          "eye-strain-treatment",
			Name:        "Eye Strain Package",
			Duration:    30,
			Description: "Relief for eye strain, headaches and neck stiffness.",
		},
	})
	if err != nil {
		// The built-in menu is static; a validation failure here is a
		// programming error.
		panic(err)
	}
	return cat
}
