// Package seed loads users and sample tickets from a YAML fixture into the
// repositories. Passwords in the fixture are plaintext and hashed on load.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/repository"
)

// Fixture is the top-level document.
type Fixture struct {
	Users   []UserFixture   `yaml:"users"`
	Tickets []TicketFixture `yaml:"tickets"`
}

// UserFixture describes one account.
type UserFixture struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Admin    bool   `yaml:"admin"`
}

// TicketFixture describes a sample ticket. Owner and reply authors are
// referenced by email.
type TicketFixture struct {
	Owner       string         `yaml:"owner"`
	Title       string         `yaml:"title"`
	Category    string         `yaml:"category"`
	Description string         `yaml:"description"`
	State       string         `yaml:"state"`
	Replies     []ReplyFixture `yaml:"replies"`
}

// ReplyFixture is a text block appended after the description.
type ReplyFixture struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// Repositories are the stores a fixture is written to.
type Repositories struct {
	Users      repository.UserRepository
	Tickets    repository.TicketRepository
	TextBlocks repository.TextBlockRepository
}

// Result counts what Apply wrote.
type Result struct {
	UsersCreated   int
	UsersExisting  int
	TicketsCreated int
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := fixture.Validate(); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// Validate checks required fields and that every referenced email is declared.
func (f *Fixture) Validate() error {
	emails := make(map[string]struct{}, len(f.Users))
	for i, u := range f.Users {
		if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Name) == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: email, name and password are required", i)
		}
		emails[strings.ToLower(u.Email)] = struct{}{}
	}
	known := func(email string) bool {
		_, ok := emails[strings.ToLower(email)]
		return ok
	}
	for i, t := range f.Tickets {
		if !known(t.Owner) {
			return fmt.Errorf("tickets[%d]: unknown owner %q", i, t.Owner)
		}
		if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Description) == "" {
			return fmt.Errorf("tickets[%d]: title and description are required", i)
		}
		if _, err := domain.ParseTicketCategory(t.Category); err != nil {
			return fmt.Errorf("tickets[%d]: %w", i, err)
		}
		if t.State != "" {
			if _, err := domain.ParseTicketState(t.State); err != nil {
				return fmt.Errorf("tickets[%d]: %w", i, err)
			}
		}
		for j, r := range t.Replies {
			if !known(r.Author) {
				return fmt.Errorf("tickets[%d].replies[%d]: unknown author %q", i, j, r.Author)
			}
		}
	}
	return nil
}

// Apply writes the fixture. Users that already exist are reused; tickets are
// always appended. Pass includeTickets=false to seed accounts only.
func Apply(ctx context.Context, f *Fixture, repos Repositories, includeTickets bool, logger *zap.Logger) (Result, error) {
	var result Result
	users := make(map[string]domain.User, len(f.Users))

	for _, uf := range f.Users {
		salt, hash, err := auth.HashPassword(uf.Password)
		if err != nil {
			return result, err
		}
		user := &domain.User{
			Email:   strings.TrimSpace(uf.Email),
			Name:    strings.TrimSpace(uf.Name),
			IsAdmin: uf.Admin,
			Salt:    salt,
			Hash:    hash,
		}
		err = repos.Users.Create(ctx, user)
		switch {
		case err == nil:
			result.UsersCreated++
			logger.Info("seeded user", zap.String("email", user.Email), zap.Bool("admin", user.IsAdmin))
		case errors.Is(err, repository.ErrDuplicate):
			existing, lookupErr := repos.Users.GetByEmail(ctx, user.Email)
			if lookupErr != nil {
				return result, lookupErr
			}
			user = existing
			result.UsersExisting++
		default:
			return result, fmt.Errorf("create user %s: %w", uf.Email, err)
		}
		users[strings.ToLower(user.Email)] = *user
	}

	if !includeTickets {
		return result, nil
	}

	for _, tf := range f.Tickets {
		owner := users[strings.ToLower(tf.Owner)]
		category, _ := domain.ParseTicketCategory(tf.Category)
		ticket := &domain.Ticket{
			OwnerID:   owner.ID,
			OwnerName: owner.Name,
			Title:     strings.TrimSpace(tf.Title),
			Category:  category,
			State:     domain.TicketStateOpen,
		}
		initial := &domain.TextBlock{AuthorID: owner.ID, AuthorName: owner.Name, Content: strings.TrimSpace(tf.Description)}
		if err := repos.Tickets.Create(ctx, ticket, initial); err != nil {
			return result, fmt.Errorf("create ticket %q: %w", tf.Title, err)
		}
		for _, rf := range tf.Replies {
			author := users[strings.ToLower(rf.Author)]
			block := &domain.TextBlock{TicketID: ticket.ID, AuthorID: author.ID, AuthorName: author.Name, Content: rf.Content}
			if err := repos.TextBlocks.Create(ctx, block); err != nil {
				return result, fmt.Errorf("create reply on %q: %w", tf.Title, err)
			}
		}
		if state, _ := domain.ParseTicketState(tf.State); state == domain.TicketStateClosed {
			if _, err := repos.Tickets.Update(ctx, ticket.ID, domain.StateChange(state)); err != nil {
				return result, fmt.Errorf("close ticket %q: %w", tf.Title, err)
			}
		}
		result.TicketsCreated++
	}
	return result, nil
}
