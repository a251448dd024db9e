// Package seed fills an empty database with a demo user and random leads.
package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/leadflow/leadflow/pkg/model"
)

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
		"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
		"Thomas", "Sarah", "Carlos", "Karen", "Daniel", "Lisa", "Matthew", "Nancy",
		"Anthony", "Betty", "Mark", "Sandra", "Priya", "Ashley", "Wei", "Emily",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
		"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
		"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker", "Young",
	}
	companyWords = []string{
		"Acme", "Globex", "Initech", "Umbrella", "Stark", "Wayne", "Hooli", "Vandelay",
		"Soylent", "Wonka", "Cyberdyne", "Tyrell", "Pied Piper", "Massive Dynamic", "Aperture", "Gringotts",
	}
	companySuffixes = []string{"Inc", "LLC", "Group", "Labs", "Partners", "Holdings", "and Sons"}
	cities          = []string{
		"Springfield", "Riverside", "Franklin", "Greenville", "Bristol", "Clinton", "Fairview",
		"Salem", "Madison", "Georgetown", "Arlington", "Ashland", "Dover", "Oxford", "Jackson",
	}
	emailDomains = []string{"example.com", "example.org", "mail.test", "corp.test"}

	// States is the fixed set of US states seeded leads are drawn from.
	States = []string{"CA", "NY", "TX", "FL", "IL", "PA", "OH", "GA", "NC", "MI"}
)

// LeadGenerator produces random but plausible leads.
type LeadGenerator struct {
	rnd   *rand.Rand
	now   time.Time
	since time.Time
}

// NewLeadGenerator creates a generator. The same seed and now always yield the same leads.
func NewLeadGenerator(seed uint64, now time.Time) *LeadGenerator {
	return &LeadGenerator{
		rnd:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:   now.UTC(),
		since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Generate returns n leads with distinct emails.
func (g *LeadGenerator) Generate(n int) []*model.Lead {
	leads := make([]*model.Lead, 0, n)
	for i := 0; i < n; i++ {
		leads = append(leads, g.lead(i))
	}
	return leads
}

func (g *LeadGenerator) lead(seq int) *model.Lead {
	first := pick(g.rnd, firstNames)
	last := pick(g.rnd, lastNames)

	created := g.between(g.since, g.now)
	updated := g.between(g.now.Add(-7*24*time.Hour), g.now)
	if updated.Before(created) {
		updated = created
	}

	l := &model.Lead{
		FirstName:   first,
		LastName:    last,
		Email:       fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), seq, pick(g.rnd, emailDomains)),
		Phone:       fmt.Sprintf("(%03d) %03d-%04d", 200+g.rnd.IntN(800), 200+g.rnd.IntN(800), g.rnd.IntN(10000)),
		Company:     pick(g.rnd, companyWords) + " " + pick(g.rnd, companySuffixes),
		City:        pick(g.rnd, cities),
		State:       pick(g.rnd, States),
		Source:      pick(g.rnd, model.Sources()),
		Status:      pick(g.rnd, model.Statuses()),
		Score:       g.rnd.IntN(101),
		LeadValue:   float64(100 + g.rnd.IntN(50000-100+1)),
		IsQualified: g.rnd.IntN(2) == 1,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	if g.rnd.IntN(2) == 1 {
		at := g.between(g.now.Add(-30*24*time.Hour), g.now)
		l.LastActivityAt = &at
	}
	return l
}

// between returns a time in [from, to], truncated to milliseconds as stored.
func (g *LeadGenerator) between(from, to time.Time) time.Time {
	span := to.Sub(from)
	if span <= 0 {
		return from
	}
	return from.Add(time.Duration(g.rnd.Int64N(int64(span) + 1))).Truncate(time.Millisecond)
}

func pick[T any](rnd *rand.Rand, from []T) T {
	return from[rnd.IntN(len(from))]
}
